// Package selection tracks the feature the user clicked, renders its detail
// card and keeps the highlight overlay in sync.
package selection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// Kind is the category of a selected feature.
type Kind string

const (
	Alive         Kind = "alive"
	Felled        Kind = "felled"
	Neighbourhood Kind = "neighbourhood"
)

// KindForLayer maps a clickable layer to its selection kind.
func KindForLayer(layer string) (Kind, error) {
	switch layer {
	case mapengine.PointLayer("trees"):
		return Alive, nil
	case mapengine.PointLayer("fellings"):
		return Felled, nil
	case mapengine.FillLayer("neighbourhoods"):
		return Neighbourhood, nil
	}
	return "", fmt.Errorf("layer %q is not selectable", layer)
}

// Selected is a clicked feature.
type Selected struct {
	Geometry orb.Geometry
	Attrs    feature.Attrs
	Kind     Kind
}

// Manager holds at most one selection. Not safe for concurrent use.
type Manager struct {
	m       mapengine.Map
	panel   mapengine.Panel
	lang    i18n.Lang
	current *Selected
}

// NewManager creates a manager with nothing selected. Nothing is pushed
// until Clear or Select.
func NewManager(m mapengine.Map, panel mapengine.Panel, lang i18n.Lang) *Manager {
	return &Manager{m: m, panel: panel, lang: lang}
}

// Current returns the selection, if any.
func (s *Manager) Current() (Selected, bool) {
	if s.current == nil {
		return Selected{}, false
	}
	return *s.current, true
}

// Select replaces the current selection.
func (s *Manager) Select(sel Selected) error {
	if sel.Geometry == nil {
		return fmt.Errorf("selected feature has no geometry")
	}
	s.current = &sel
	s.show(sel)
	return nil
}

// show pushes the geometry alone as the highlight, attributes stripped.
func (s *Manager) show(sel Selected) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(sel.Geometry))
	s.m.SetSourceData(mapengine.HighlightSource, fc)
	s.panel.ShowCard(CardFor(sel, s.lang))
}

// Clear drops the selection, empties the highlight and shows the prompt.
func (s *Manager) Clear() {
	s.current = nil
	s.m.SetSourceData(mapengine.HighlightSource, geojson.NewFeatureCollection())
	s.panel.ShowCard(Placeholder(s.lang))
}

// SetLanguage re-renders the card in lang.
func (s *Manager) SetLanguage(lang i18n.Lang) {
	s.lang = lang
	s.Render()
}

// Render re-sends the highlight and card for the current state.
func (s *Manager) Render() {
	if s.current == nil {
		s.Clear()
		return
	}
	s.show(*s.current)
}
