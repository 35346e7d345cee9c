// Package layers keeps the visibility of the rendering engine's layers in
// step with the UI toggles, and drives the neighbourhood overlay.
package layers

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// Toggle is a logical UI switch.
type Toggle string

const (
	TreesToggle          Toggle = "trees"
	FellingsToggle       Toggle = "fellings"
	NeighbourhoodsToggle Toggle = "neighbourhoods"
)

// Toggles in display order.
var Toggles = []Toggle{TreesToggle, FellingsToggle, NeighbourhoodsToggle}

func pointLayers(id dataset.ID) []string {
	s := string(id)
	return []string{mapengine.ClusterLayer(s), mapengine.ClusterCountLayer(s), mapengine.PointLayer(s)}
}

// Table maps each toggle to the layers it shows or hides together.
var Table = map[Toggle][]string{
	TreesToggle:    pointLayers(dataset.Trees),
	FellingsToggle: pointLayers(dataset.Fellings),
	NeighbourhoodsToggle: {
		mapengine.FillLayer(string(dataset.Neighbourhoods)),
		mapengine.LineLayer(string(dataset.Neighbourhoods)),
	},
}

// ParseToggle validates a toggle name.
func ParseToggle(s string) (Toggle, error) {
	t := Toggle(s)
	if _, ok := Table[t]; !ok {
		return "", fmt.Errorf("unknown layer toggle %q", s)
	}
	return t, nil
}

// ActiveAttr is the attribute the overlay paint expression reads.
const ActiveAttr = "active"

// Coordinator owns toggle state and the overlay metric of one session.
type Coordinator struct {
	reg     *dataset.Registry
	m       mapengine.Map
	panel   mapengine.Panel
	visible map[Toggle]bool
	metric  Metric
	lang    i18n.Lang
}

// NewCoordinator starts with point layers shown, the overlay hidden and the
// given metric selected. Nothing is pushed until Refresh.
func NewCoordinator(reg *dataset.Registry, m mapengine.Map, panel mapengine.Panel, metric Metric, lang i18n.Lang) *Coordinator {
	return &Coordinator{
		reg:   reg,
		m:     m,
		panel: panel,
		visible: map[Toggle]bool{
			TreesToggle:          true,
			FellingsToggle:       true,
			NeighbourhoodsToggle: false,
		},
		metric: metric,
		lang:   lang,
	}
}

// Visible reports the state of a toggle.
func (c *Coordinator) Visible(t Toggle) bool { return c.visible[t] }

// Metric returns the current overlay metric.
func (c *Coordinator) Metric() Metric { return c.metric }

// SetLayerVisible shows or hides every layer of a toggle. Setting the
// current state again issues nothing and reports false.
func (c *Coordinator) SetLayerVisible(t Toggle, visible bool) (bool, error) {
	layers, ok := Table[t]
	if !ok {
		return false, fmt.Errorf("unknown layer toggle %q", t)
	}
	if c.visible[t] == visible {
		return false, nil
	}
	c.visible[t] = visible
	for _, l := range layers {
		c.m.SetLayerVisibility(l, visible)
	}
	return true, nil
}

// SetOverlayMetric recolors the neighbourhood overlay by metric and updates
// the legend. Selecting the current metric again issues nothing.
func (c *Coordinator) SetOverlayMetric(m Metric) (bool, error) {
	if _, ok := metrics[m]; !ok {
		return false, fmt.Errorf("unknown metric %q", m)
	}
	if m == c.metric {
		return false, nil
	}
	c.metric = m
	c.pushOverlay()
	return true, nil
}

// SetLanguage relabels the legend.
func (c *Coordinator) SetLanguage(lang i18n.Lang) {
	if lang == c.lang {
		return
	}
	c.lang = lang
	if c.panel != nil {
		c.panel.ShowLegend(LegendFor(c.metric, lang))
	}
}

// Refresh re-sends every layer's visibility, the overlay data and the
// legend, regardless of what was sent before.
func (c *Coordinator) Refresh() {
	for _, t := range Toggles {
		for _, l := range Table[t] {
			c.m.SetLayerVisibility(l, c.visible[t])
		}
	}
	c.pushOverlay()
}

func (c *Coordinator) pushOverlay() {
	src, err := c.reg.Source(dataset.Neighbourhoods)
	if err == nil && src.Areas() != nil {
		c.m.SetSourceData(string(dataset.Neighbourhoods), WithActiveMetric(src.Areas(), c.metric))
	}
	if c.panel != nil {
		c.panel.ShowLegend(LegendFor(c.metric, c.lang))
	}
}

// WithActiveMetric copies fc, setting each feature's ActiveAttr to its
// metric value. The input collection is not modified.
func WithActiveMetric(fc *geojson.FeatureCollection, m Metric) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	out.Features = make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		clone := geojson.NewFeature(f.Geometry)
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		clone.Properties[ActiveAttr] = f.Properties[string(m)]
		out.Append(clone)
	}
	return out
}
