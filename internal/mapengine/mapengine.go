// Package mapengine describes the rendering engine and UI panels the core
// drives, and records the commands sent to them.
//
// The browser-side map library is an external collaborator: the core only
// issues the commands below. Commands are plain JSON so they can be
// streamed to a viewer or asserted on in tests.
package mapengine

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/expr"
)

// Source and layer identifiers shared with the viewer's style.
const (
	HighlightSource = "highlight"
	HighlightLayer  = "highlight"
)

// PointLayer is the unclustered point layer of a point dataset.
func PointLayer(dataset string) string { return dataset + "-points" }

// ClusterLayer is the cluster circle layer of a point dataset.
func ClusterLayer(dataset string) string { return dataset + "-clusters" }

// ClusterCountLayer is the cluster label layer of a point dataset.
func ClusterCountLayer(dataset string) string { return dataset + "-cluster-count" }

// FillLayer and LineLayer draw the neighbourhood overlay.
func FillLayer(dataset string) string { return dataset + "-fill" }
func LineLayer(dataset string) string { return dataset + "-line" }

// Map is the subset of the rendering engine the core drives.
type Map interface {
	SetSourceData(source string, data *geojson.FeatureCollection)
	SetLayerVisibility(layer string, visible bool)
	SetFilter(layer string, filter expr.Expr)
	FitBounds(b orb.Bound)
}

// Panel receives the non-map UI state: detail card, legend, species list
// and the year sliders.
type Panel interface {
	ShowCard(card Card)
	ShowLegend(legend Legend)
	ShowSpecies(list SpeciesList)
	ShowYears(years YearRanges)
}

// Field is one labelled row of a detail card.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is the detail view. A card without a title is the placeholder.
type Card struct {
	Kind   string  `json:"kind,omitempty"`
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Prompt string  `json:"prompt,omitempty"`
}

// Placeholder reports whether the card is the empty prompt state.
func (c Card) Placeholder() bool { return c.Title == "" }

// Stop is one discrete legend class: values at or above Threshold use Color.
type Stop struct {
	Threshold float64 `json:"threshold"`
	Color     string  `json:"color"`
}

// Legend describes the overlay metric's color classes.
type Legend struct {
	Metric string `json:"metric"`
	Title  string `json:"title"`
	Stops  []Stop `json:"stops"`
}

// SpeciesOption is one entry of the species picker.
type SpeciesOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpeciesList is the picker content and its current selection.
type SpeciesList struct {
	Selected string          `json:"selected,omitempty"`
	All      string          `json:"all,omitempty"`
	Options  []SpeciesOption `json:"options"`
}

// YearRanges holds the bounds shown by the year sliders.
type YearRanges struct {
	TreesMin    int `json:"treesmin"`
	TreesMax    int `json:"treesmax"`
	FellingsMin int `json:"fellingsmin"`
	FellingsMax int `json:"fellingsmax"`
}
