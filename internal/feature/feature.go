// Package feature turns raw GeoJSON into flat point collections and
// provides typed access to feature attributes.
package feature

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/i18n"
)

// Kind identifies which point dataset a feature belongs to.
type Kind int

const (
	AliveTree Kind = iota
	FelledTree
)

func (k Kind) String() string {
	if k == FelledTree {
		return "felled"
	}
	return "alive"
}

// Feature is a single point with its attributes.
type Feature struct {
	Point orb.Point
	Attrs Attrs
	Kind  Kind
}

// Collection is an ordered list of point features, in input order.
type Collection []Feature

// GeoJSON converts the collection into a GeoJSON FeatureCollection for the
// rendering engine. Attribute maps are shared, not copied.
func (c Collection) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(c))
	for _, f := range c {
		gf := geojson.NewFeature(f.Point)
		gf.Properties = geojson.Properties(f.Attrs)
		fc.Append(gf)
	}
	return fc
}

// Filter returns the features for which keep returns true.
func (c Collection) Filter(keep func(Feature) bool) Collection {
	out := make(Collection, 0, len(c))
	for _, f := range c {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Finite reports whether both coordinates are finite numbers.
func Finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Bounds returns the bounding box of all points, false if there are none.
func Bounds(c Collection) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range c {
		if !Finite(f.Point) {
			continue
		}
		if !found {
			b = f.Point.Bound()
			found = true
			continue
		}
		b = b.Extend(f.Point)
	}
	return b, found
}

// Attrs is a feature's attribute map.
type Attrs map[string]any

// Clone returns a shallow copy; attribute values are scalars.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Has reports whether key is present with a non-null value.
func (a Attrs) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns a non-empty string attribute.
func (a Attrs) String(key string) (string, bool) {
	s, ok := a[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Text formats a scalar attribute for display.
func (a Attrs) Text(key string) (string, bool) {
	switch v := a[key].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// Number parses a numeric attribute. Strings are accepted when they parse
// as a decimal number; anything else is reported as missing.
func (a Attrs) Number(key string) (float64, bool) {
	return ToNumber(a[key])
}

// ToNumber converts a scalar attribute value to a finite number.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// YearPrefix returns the first four runes of a date string, the year of an
// ISO date.
func YearPrefix(date string) string {
	r := []rune(date)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}

// Names pairs the per-language attribute keys of one localized field.
type Names struct {
	EN string
	FR string
}

func (n Names) key(lang i18n.Lang) string {
	if lang == i18n.FR {
		return n.FR
	}
	return n.EN
}

// SpeciesNames are the species display name attributes of both point datasets.
var SpeciesNames = Names{EN: "essence_ang", FR: "essence_fr"}

// Localized resolves a displayable value: the attribute for lang first,
// then the other language's attribute.
func (a Attrs) Localized(lang i18n.Lang, names Names) (string, bool) {
	if s, ok := a.Text(names.key(lang)); ok {
		return s, true
	}
	return a.Text(names.key(lang.Other()))
}
