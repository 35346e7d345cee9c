package species

import (
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/i18n"
)

func collection(attrs ...feature.Attrs) feature.Collection {
	c := make(feature.Collection, len(attrs))
	for i, a := range attrs {
		c[i] = feature.Feature{Point: orb.Point{0, 0}, Attrs: a}
	}
	return c
}

func TestScenarioMaple(t *testing.T) {
	trees := collection(feature.Attrs{"sigle": "MAAM", "essence_ang": "Maple"})
	fellings := collection(feature.Attrs{"sp_sigle": "MAAM"})

	got := BuildCatalog(trees, fellings, i18n.EN)
	want := []Entry{{ID: "MAAM", DisplayName: "Maple"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCatalog(t *testing.T) {
	trees := collection(
		feature.Attrs{"sigle": "ACSA", "essence_ang": "Silver maple", "essence_fr": "Érable argenté"},
		feature.Attrs{"sigle": "", "essence_ang": "Nothing"},
		feature.Attrs{"sigle": "ULPU"},
		feature.Attrs{"sigle": "ACSA", "essence_ang": "Other name"},
		feature.Attrs{"essence_ang": "No code"},
	)
	fellings := collection(
		feature.Attrs{"sp_sigle": "ULPU", "essence_fr": "Orme de Sibérie"},
		feature.Attrs{"sp_sigle": "FRPE", "essence_ang": "Green ash", "essence_fr": "Frêne rouge"},
		feature.Attrs{"sp_sigle": "GIBI"},
	)

	en := BuildCatalog(trees, fellings, i18n.EN)
	wantEN := []Entry{
		{ID: "GIBI", DisplayName: "GIBI"},
		{ID: "FRPE", DisplayName: "Green ash"},
		{ID: "ULPU", DisplayName: "Orme de Sibérie"},
		{ID: "ACSA", DisplayName: "Silver maple"},
	}
	if !reflect.DeepEqual(en, wantEN) {
		t.Fatalf("en catalog:\n got %v\nwant %v", en, wantEN)
	}

	fr := BuildCatalog(trees, fellings, i18n.FR)
	wantFR := []Entry{
		{ID: "ACSA", DisplayName: "Érable argenté"},
		{ID: "FRPE", DisplayName: "Frêne rouge"},
		{ID: "GIBI", DisplayName: "GIBI"},
		{ID: "ULPU", DisplayName: "Orme de Sibérie"},
	}
	if !reflect.DeepEqual(fr, wantFR) {
		t.Fatalf("fr catalog:\n got %v\nwant %v", fr, wantFR)
	}
}

func TestCatalogIdempotent(t *testing.T) {
	trees := collection(
		feature.Attrs{"sigle": "B", "essence_ang": "Same"},
		feature.Attrs{"sigle": "A", "essence_ang": "Same"},
		feature.Attrs{"sigle": "C", "essence_ang": "alder"},
	)
	idx := NewIndex(trees, nil)
	first := idx.Entries(i18n.EN)
	if !reflect.DeepEqual(first, idx.Entries(i18n.EN)) {
		t.Fatal("Entries not idempotent")
	}
	if !reflect.DeepEqual(first, BuildCatalog(trees, nil, i18n.EN)) {
		t.Fatal("BuildCatalog not idempotent")
	}
	// ties keep discovery order
	if first[1].ID != "B" || first[2].ID != "A" {
		t.Fatalf("tie order = %v", first)
	}
	if !idx.Has("A") || idx.Has("Z") || idx.Len() != 3 {
		t.Fatal("membership wrong")
	}
}
