// Package i18n holds the two display languages of the viewer and the
// handful of labels the core needs to render cards and legends.
package i18n

import "fmt"

// Lang is a display language.
type Lang string

const (
	EN Lang = "en"
	FR Lang = "fr"
)

// Default is used when no language has been chosen.
const Default = EN

// Parse validates a language code.
func Parse(s string) (Lang, error) {
	switch Lang(s) {
	case EN, FR:
		return Lang(s), nil
	case "":
		return Default, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Other returns the fallback language.
func (l Lang) Other() Lang {
	if l == FR {
		return EN
	}
	return FR
}

var labels = map[Lang]map[string]string{
	EN: {
		"species":       "Species",
		"code":          "Code",
		"plant_year":    "Planted",
		"height":        "Height (m)",
		"removal_year":  "Removed",
		"cause":         "Reason",
		"heat":          "Heat index",
		"noise_eq":      "Noise Leq (dB)",
		"noise_p50":     "Noise L50 (dB)",
		"pm25":          "PM2.5 (µg/m³)",
		"tree_count":    "Living trees",
		"no_data":       "No data",
		"alive_title":   "Tree",
		"felled_title":  "Felled tree",
		"area_title":    "Neighbourhood",
		"prompt":        "Click a tree or a neighbourhood to see its details.",
		"all_species":   "All species",
		"legend_prefix": "Legend",
	},
	FR: {
		"species":       "Essence",
		"code":          "Code",
		"plant_year":    "Plantation",
		"height":        "Hauteur (m)",
		"removal_year":  "Abattage",
		"cause":         "Motif",
		"heat":          "Indice de chaleur",
		"noise_eq":      "Bruit Leq (dB)",
		"noise_p50":     "Bruit L50 (dB)",
		"pm25":          "PM2,5 (µg/m³)",
		"tree_count":    "Arbres vivants",
		"no_data":       "Pas de données",
		"alive_title":   "Arbre",
		"felled_title":  "Arbre abattu",
		"area_title":    "Quartier",
		"prompt":        "Cliquez sur un arbre ou un quartier pour voir le détail.",
		"all_species":   "Toutes les essences",
		"legend_prefix": "Légende",
	},
}

// Label returns the label for key in lang, the key itself if unknown.
func Label(lang Lang, key string) string {
	if m, ok := labels[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := labels[Default][key]; ok {
		return s
	}
	return key
}
