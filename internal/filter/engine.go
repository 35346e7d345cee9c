package filter

import (
	"errors"
	"fmt"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/expr"
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// EffectKind is how a filter result reaches the rendering engine.
type EffectKind string

const (
	// ReplaceData swaps an Inline source's features; clusters recompute.
	ReplaceData EffectKind = "replace-data"
	// SetLayerFilter installs a predicate on a Tiled point layer. Tiled
	// cluster layers are pre-aggregated and keep showing unfiltered counts.
	SetLayerFilter EffectKind = "set-filter"
)

// Effect is one change produced by Apply. Count is the number of visible
// features, -1 when the engine evaluates a predicate instead.
type Effect struct {
	Dataset dataset.ID         `json:"dataset"`
	Kind    EffectKind         `json:"kind"`
	Source  string             `json:"source,omitempty"`
	Layer   string             `json:"layer,omitempty"`
	Count   int                `json:"count"`
	Filter  expr.Expr          `json:"filter,omitempty"`
	Data    feature.Collection `json:"-"`
}

// Push sends the effect to the rendering engine.
func (e Effect) Push(m mapengine.Map) {
	switch e.Kind {
	case ReplaceData:
		m.SetSourceData(e.Source, e.Data.GeoJSON())
	case SetLayerFilter:
		m.SetFilter(e.Layer, e.Filter)
	}
}

// Compute derives the effect of spec on a point dataset without touching
// any state.
func Compute(src *dataset.Source, spec Spec) (Effect, error) {
	sc, ok := Schemas[src.ID]
	if !ok {
		return Effect{}, fmt.Errorf("%s is not a point dataset", src.ID)
	}
	if src.Backend == dataset.Tiled {
		return Effect{
			Dataset: src.ID,
			Kind:    SetLayerFilter,
			Layer:   mapengine.PointLayer(string(src.ID)),
			Count:   -1,
			Filter:  sc.Expression(spec),
		}, nil
	}
	all, err := src.Points()
	if err != nil {
		return Effect{}, err
	}
	filtered := all.Filter(sc.Predicate(spec))
	return Effect{
		Dataset: src.ID,
		Kind:    ReplaceData,
		Source:  string(src.ID),
		Count:   len(filtered),
		Data:    filtered,
	}, nil
}

// Engine applies specs to a session's registry and rendering engine.
type Engine struct {
	reg *dataset.Registry
	m   mapengine.Map
}

// NewEngine creates a filter engine. m may be nil to compute effects only.
func NewEngine(reg *dataset.Registry, m mapengine.Map) *Engine {
	return &Engine{reg: reg, m: m}
}

// Apply filters both point datasets independently. Each result depends
// only on specs and the unfiltered or tiled source. Datasets missing from
// the registry are skipped.
func (e *Engine) Apply(specs Specs) ([]Effect, error) {
	var effects []Effect
	for _, id := range dataset.PointIDs {
		src, err := e.reg.Source(id)
		if errors.Is(err, dataset.ErrUnknown) {
			continue
		}
		if err != nil {
			return effects, err
		}
		eff, err := Compute(src, specs.For(id))
		if err != nil {
			return effects, err
		}
		if eff.Kind == ReplaceData {
			if err := e.reg.SetActiveView(id, eff.Data); err != nil {
				return effects, err
			}
		}
		if e.m != nil {
			eff.Push(e.m)
		}
		effects = append(effects, eff)
	}
	return effects, nil
}
