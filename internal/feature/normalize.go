package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Decode parses a GeoJSON FeatureCollection. Malformed input yields an
// empty collection, never an error.
func Decode(data []byte) *geojson.FeatureCollection {
	if len(data) == 0 {
		return geojson.NewFeatureCollection()
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil || fc == nil {
		return geojson.NewFeatureCollection()
	}
	return fc
}

// Normalize flattens Point, MultiPoint and GeometryCollection-of-Point
// features into single point features. Non-finite coordinates and every
// other geometry type are dropped. Each emitted feature owns its attributes.
func Normalize(fc *geojson.FeatureCollection, kind Kind) Collection {
	if fc == nil {
		return Collection{}
	}
	out := make(Collection, 0, len(fc.Features))
	emit := func(p orb.Point, props geojson.Properties) {
		if !Finite(p) {
			return
		}
		out = append(out, Feature{Point: p, Attrs: Attrs(props).Clone(), Kind: kind})
	}

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Point:
			emit(g, f.Properties)
		case orb.MultiPoint:
			for _, p := range g {
				emit(p, f.Properties)
			}
		case orb.Collection:
			for _, sub := range g {
				if p, ok := sub.(orb.Point); ok {
					emit(p, f.Properties)
				}
			}
		}
	}
	return out
}
