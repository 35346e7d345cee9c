package selection

import (
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// Missing is shown for a field absent in both languages.
const Missing = "—"

// MinTreeCount is the smallest tree_count reported as a number; smaller
// samples are shown as no data.
const MinTreeCount = 50

// Placeholder is the card shown with nothing selected.
func Placeholder(lang i18n.Lang) mapengine.Card {
	return mapengine.Card{Prompt: i18n.Label(lang, "prompt")}
}

type row struct {
	label string
	names feature.Names
}

func same(key string) feature.Names { return feature.Names{EN: key, FR: key} }

var aliveRows = []row{
	{"species", feature.SpeciesNames},
	{"code", same("sigle")},
	{"plant_year", same("plant_year")},
	{"height", same("hauteur_m")},
}

var felledRows = []row{
	{"species", feature.SpeciesNames},
	{"code", same("sp_sigle")},
	{"removal_year", same("removal_year")},
	{"cause", same("cause")},
}

var areaRows = []row{
	{"heat", same("heat")},
	{"noise_eq", same("noise_eq")},
	{"noise_p50", same("noise_p50")},
	{"pm25", same("pm25")},
	{"tree_count", same("tree_count")},
}

// CardFor renders the detail card of a selection.
func CardFor(sel Selected, lang i18n.Lang) mapengine.Card {
	var title string
	var rows []row
	switch sel.Kind {
	case Alive:
		title, rows = "alive_title", aliveRows
	case Felled:
		title, rows = "felled_title", felledRows
	default:
		title, rows = "area_title", areaRows
	}

	card := mapengine.Card{Kind: string(sel.Kind), Title: i18n.Label(lang, title)}
	for _, r := range rows {
		card.Fields = append(card.Fields, mapengine.Field{
			Label: i18n.Label(lang, r.label),
			Value: value(sel, r, lang),
		})
	}
	return card
}

func value(sel Selected, r row, lang i18n.Lang) string {
	switch {
	case r.label == "tree_count":
		if n, ok := sel.Attrs.Number("tree_count"); ok && n < MinTreeCount {
			return i18n.Label(lang, "no_data")
		}
	case r.label == "removal_year" && !sel.Attrs.Has("removal_year"):
		if date, ok := sel.Attrs.String("removal_date"); ok {
			return feature.YearPrefix(date)
		}
	}
	if s, ok := sel.Attrs.Localized(lang, r.names); ok {
		return s
	}
	return Missing
}
