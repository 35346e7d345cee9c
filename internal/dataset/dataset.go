// Package dataset holds the loaded datasets and each session's active
// (filtered) view of them.
package dataset

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/feature"
)

// ID names a logical dataset.
type ID string

const (
	Trees          ID = "trees"
	Fellings       ID = "fellings"
	Neighbourhoods ID = "neighbourhoods"
)

// PointIDs are the datasets filtered by year and species.
var PointIDs = []ID{Trees, Fellings}

// Backend is how a dataset reaches the rendering engine.
type Backend int

const (
	// Inline datasets are held in memory and replaced wholesale on filter.
	Inline Backend = iota
	// Tiled datasets are pre-built vector tile archives filtered by predicate.
	Tiled
)

func (b Backend) String() string {
	if b == Tiled {
		return "tiled"
	}
	return "inline"
}

// MarshalText encodes the backend for JSON responses.
func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

var (
	// ErrUnsupported is returned when an operation needs a client-side
	// collection from a Tiled dataset.
	ErrUnsupported = errors.New("operation unsupported for tiled dataset")
	// ErrUnknown is returned for ids not present in a registry.
	ErrUnknown = errors.New("unknown dataset")
)

// Source is a loaded dataset. It is immutable once constructed and shared
// between sessions.
type Source struct {
	ID      ID
	Backend Backend
	// URL is the archive reference for Tiled datasets.
	URL string
	// SourceLayer is the layer name inside a Tiled archive.
	SourceLayer string

	points feature.Collection
	areas  *geojson.FeatureCollection
	bounds orb.Bound
	hasBB  bool
}

// NewInline builds an Inline point dataset from a normalized collection.
func NewInline(id ID, points feature.Collection) *Source {
	if points == nil {
		points = feature.Collection{}
	}
	s := &Source{ID: id, Backend: Inline, points: points}
	s.bounds, s.hasBB = feature.Bounds(points)
	return s
}

// NewAreas builds the Inline neighbourhood dataset. Null features are dropped.
func NewAreas(id ID, fc *geojson.FeatureCollection) *Source {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	kept := *fc
	kept.Features = make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil {
			kept.Features = append(kept.Features, f)
		}
	}
	s := &Source{ID: id, Backend: Inline, areas: &kept}
	for _, f := range kept.Features {
		if f.Geometry == nil {
			continue
		}
		if !s.hasBB {
			s.bounds, s.hasBB = f.Geometry.Bound(), true
			continue
		}
		s.bounds = s.bounds.Union(f.Geometry.Bound())
	}
	return s
}

// NewTiled references a pre-built tile archive. Bounds come from the
// archive header when known.
func NewTiled(id ID, url, sourceLayer string, bounds *orb.Bound) *Source {
	s := &Source{ID: id, Backend: Tiled, URL: url, SourceLayer: sourceLayer}
	if bounds != nil {
		s.bounds, s.hasBB = *bounds, true
	}
	return s
}

// Points returns the full point collection of an Inline dataset.
func (s *Source) Points() (feature.Collection, error) {
	if s.Backend == Tiled {
		return nil, fmt.Errorf("%s: %w", s.ID, ErrUnsupported)
	}
	return s.points, nil
}

// Areas returns the neighbourhood polygons, or nil for point datasets.
func (s *Source) Areas() *geojson.FeatureCollection {
	return s.areas
}

// Bounds returns the dataset extent if known.
func (s *Source) Bounds() (orb.Bound, bool) {
	return s.bounds, s.hasBB
}

// Len is the number of features held client-side, -1 for Tiled datasets.
func (s *Source) Len() int {
	switch {
	case s.Backend == Tiled:
		return -1
	case s.areas != nil:
		return len(s.areas.Features)
	}
	return len(s.points)
}
