package selection

import (
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

func fieldValue(card mapengine.Card, label string) string {
	for _, f := range card.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestSelectThenClearRestores(t *testing.T) {
	rec := mapengine.NewRecorder()
	s := NewManager(rec, rec, i18n.EN)

	s.Clear()
	before := append([]mapengine.Command(nil), rec.Log...)

	rec.Reset()
	err := s.Select(Selected{
		Geometry: orb.Point{-73.6, 45.5},
		Attrs:    feature.Attrs{"sigle": "ACSA", "essence_ang": "Silver maple"},
		Kind:     Alive,
	})
	if err != nil {
		t.Fatal(err)
	}
	hl, _ := rec.Last(mapengine.OpSetData, mapengine.HighlightSource)
	if len(hl.Data.Features) != 1 || len(hl.Data.Features[0].Properties) != 0 {
		t.Fatalf("highlight should carry geometry only: %+v", hl.Data.Features)
	}
	if _, ok := s.Current(); !ok {
		t.Fatal("selection not recorded")
	}

	rec.Reset()
	s.Clear()
	if !reflect.DeepEqual(before, rec.Log) {
		t.Fatalf("clear did not restore initial state:\n got %+v\nwant %+v", rec.Log, before)
	}
	if _, ok := s.Current(); ok {
		t.Fatal("selection not cleared")
	}
}

func TestSelectReplaces(t *testing.T) {
	rec := mapengine.NewRecorder()
	s := NewManager(rec, rec, i18n.EN)
	s.Select(Selected{Geometry: orb.Point{1, 1}, Attrs: feature.Attrs{}, Kind: Alive})
	s.Select(Selected{Geometry: orb.Point{2, 2}, Attrs: feature.Attrs{}, Kind: Felled})

	cur, _ := s.Current()
	if cur.Kind != Felled || cur.Geometry != (orb.Point{2, 2}) {
		t.Fatalf("current = %+v", cur)
	}
	if err := s.Select(Selected{Kind: Alive}); err == nil {
		t.Fatal("expected error for missing geometry")
	}
}

func TestCardAlive(t *testing.T) {
	sel := Selected{Kind: Alive, Attrs: feature.Attrs{
		"sigle": "ACSA", "essence_fr": "Érable argenté", "plant_year": 2005.0, "hauteur_m": 12.5,
	}}
	card := CardFor(sel, i18n.EN)
	if card.Title != "Tree" {
		t.Errorf("title = %q", card.Title)
	}
	if v := fieldValue(card, "Species"); v != "Érable argenté" {
		t.Errorf("species fallback = %q", v)
	}
	if v := fieldValue(card, "Planted"); v != "2005" {
		t.Errorf("plant year = %q", v)
	}
	if v := fieldValue(card, "Height (m)"); v != "12.5" {
		t.Errorf("height = %q", v)
	}
}

func TestCardFelled(t *testing.T) {
	sel := Selected{Kind: Felled, Attrs: feature.Attrs{"sp_sigle": "FRPE", "removal_date": "2021-06-30"}}
	card := CardFor(sel, i18n.FR)
	if v := fieldValue(card, "Abattage"); v != "2021" {
		t.Errorf("removal year = %q", v)
	}
	if v := fieldValue(card, "Motif"); v != Missing {
		t.Errorf("cause = %q, want placeholder", v)
	}
	if v := fieldValue(card, "Essence"); v != Missing {
		t.Errorf("species = %q, want placeholder", v)
	}
}

func TestCardRemovalDateMultiByte(t *testing.T) {
	sel := Selected{Kind: Felled, Attrs: feature.Attrs{"removal_date": "２０２１-06-30"}}
	if v := fieldValue(CardFor(sel, i18n.FR), "Abattage"); v != "２０２１" {
		t.Errorf("removal year = %q", v)
	}
}

func TestCardNeighbourhoodSmallSample(t *testing.T) {
	sel := Selected{Kind: Neighbourhood, Attrs: feature.Attrs{"tree_count": 12.0, "heat": 4.0}}
	if v := fieldValue(CardFor(sel, i18n.EN), "Living trees"); v != "No data" {
		t.Fatalf("tree_count 12 shown as %q, want No data", v)
	}
	if v := fieldValue(CardFor(sel, i18n.FR), "Arbres vivants"); v != "Pas de données" {
		t.Fatalf("fr: %q", v)
	}

	sel.Attrs["tree_count"] = 50.0
	if v := fieldValue(CardFor(sel, i18n.EN), "Living trees"); v != "50" {
		t.Fatalf("tree_count 50 shown as %q", v)
	}
}

func TestLanguageRerendersCard(t *testing.T) {
	rec := mapengine.NewRecorder()
	s := NewManager(rec, rec, i18n.EN)
	s.Clear()
	s.SetLanguage(i18n.FR)
	card, _ := rec.Last(mapengine.OpShowCard, "")
	if card.Card.Prompt != i18n.Label(i18n.FR, "prompt") {
		t.Fatalf("prompt = %q", card.Card.Prompt)
	}
}

func TestKindForLayer(t *testing.T) {
	for layer, want := range map[string]Kind{
		"trees-points":        Alive,
		"fellings-points":     Felled,
		"neighbourhoods-fill": Neighbourhood,
	} {
		got, err := KindForLayer(layer)
		if err != nil || got != want {
			t.Errorf("%s: %v %v", layer, got, err)
		}
	}
	if _, err := KindForLayer("trees-clusters"); err == nil {
		t.Fatal("clusters are not selectable")
	}
}
