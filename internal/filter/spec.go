// Package filter applies year-range and species constraints to the point
// datasets, identically for Inline and Tiled backends.
package filter

import (
	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/expr"
	"github.com/joeblew999/plat-trees/internal/feature"
)

// Spec is the visible subset of one point dataset. YearMin > YearMax is
// allowed and selects nothing.
type Spec struct {
	YearMin   int    `json:"yearMin" doc:"First year included"`
	YearMax   int    `json:"yearMax" doc:"Last year included"`
	SpeciesID string `json:"speciesId,omitempty" doc:"Species identity code, exact match"`
}

// Empty reports whether the range selects nothing.
func (s Spec) Empty() bool { return s.YearMin > s.YearMax }

// WithSpecies returns a copy constrained to a species; "" removes the constraint.
func (s Spec) WithSpecies(id string) Spec {
	s.SpeciesID = id
	return s
}

// Specs holds the spec of both point datasets.
type Specs struct {
	Trees    Spec `json:"trees"`
	Fellings Spec `json:"fellings"`
}

// For returns the spec of a point dataset.
func (s Specs) For(id dataset.ID) Spec {
	if id == dataset.Fellings {
		return s.Fellings
	}
	return s.Trees
}

// WithSpecies sets the species constraint on both datasets.
func (s Specs) WithSpecies(id string) Specs {
	return Specs{Trees: s.Trees.WithSpecies(id), Fellings: s.Fellings.WithSpecies(id)}
}

// Schema names the attributes a point dataset is filtered on.
type Schema struct {
	// Year is the numeric year attribute.
	Year string
	// DateFallback is a date string whose first four characters stand in
	// for Year when Year is absent.
	DateFallback string
	// Species is the species identity code attribute.
	Species string
}

// Schemas of the point datasets.
var Schemas = map[dataset.ID]Schema{
	dataset.Trees:    {Year: "plant_year", Species: "sigle"},
	dataset.Fellings: {Year: "removal_year", DateFallback: "removal_date", Species: "sp_sigle"},
}

// SchemaFor returns the schema of a point dataset.
func SchemaFor(id dataset.ID) Schema {
	return Schemas[id]
}

// YearOf extracts the filter year of a feature.
func (sc Schema) YearOf(a feature.Attrs) (float64, bool) {
	if a.Has(sc.Year) || sc.DateFallback == "" {
		return a.Number(sc.Year)
	}
	date, ok := a[sc.DateFallback].(string)
	if !ok {
		return 0, false
	}
	return feature.ToNumber(feature.YearPrefix(date))
}

// SpeciesOf returns the species identity code of a feature.
func (sc Schema) SpeciesOf(a feature.Attrs) (string, bool) {
	return a.String(sc.Species)
}

// Predicate is the Inline form of a spec.
func (sc Schema) Predicate(s Spec) func(feature.Feature) bool {
	if s.Empty() {
		return func(feature.Feature) bool { return false }
	}
	lo, hi := float64(s.YearMin), float64(s.YearMax)
	return func(f feature.Feature) bool {
		y, ok := sc.YearOf(f.Attrs)
		if !ok || y < lo || y > hi {
			return false
		}
		if s.SpeciesID == "" {
			return true
		}
		code, _ := f.Attrs[sc.Species].(string)
		return code == s.SpeciesID
	}
}

// Expression is the Tiled form of a spec, matching exactly the features
// Predicate keeps.
func (sc Schema) Expression(s Spec) expr.Expr {
	if s.Empty() {
		return expr.Never()
	}
	inRange := func(year expr.Expr) []expr.Expr {
		return []expr.Expr{expr.Gte(year, s.YearMin), expr.Lte(year, s.YearMax)}
	}

	year := expr.All(append([]expr.Expr{expr.Has(sc.Year)}, inRange(expr.ToNumber(expr.Get(sc.Year)))...)...)
	if sc.DateFallback != "" {
		fromDate := expr.ToNumber(expr.Slice(expr.Get(sc.DateFallback), 0, 4))
		year = expr.Any(
			year,
			expr.All(append([]expr.Expr{expr.Not(expr.Has(sc.Year)), expr.Has(sc.DateFallback)}, inRange(fromDate)...)...),
		)
	}
	if s.SpeciesID == "" {
		return year
	}
	return expr.All(year, expr.Eq(expr.Get(sc.Species), s.SpeciesID))
}
