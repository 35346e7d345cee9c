// Package species builds the species catalog shown in the species picker.
package species

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/i18n"
)

// Entry is one catalog row.
type Entry struct {
	ID          string `json:"id" doc:"Species identity code" example:"ACSA"`
	DisplayName string `json:"displayName" doc:"Name in the requested language" example:"Silver maple"`
}

// Index is the set of species codes found in the unfiltered point datasets,
// with their display names in every language. It never changes after
// construction.
type Index struct {
	codes []string
	names map[i18n.Lang]map[string]string
}

type namedSet struct {
	data   feature.Collection
	schema filter.Schema
}

// NewIndex collects species codes from trees first, then fellings.
func NewIndex(trees, fellings feature.Collection) *Index {
	sets := []namedSet{
		{trees, filter.SchemaFor(dataset.Trees)},
		{fellings, filter.SchemaFor(dataset.Fellings)},
	}

	idx := &Index{names: map[i18n.Lang]map[string]string{
		i18n.EN: {},
		i18n.FR: {},
	}}
	seen := make(map[string]bool)
	for _, s := range sets {
		for _, f := range s.data {
			code, ok := s.schema.SpeciesOf(f.Attrs)
			if !ok || seen[code] {
				continue
			}
			seen[code] = true
			idx.codes = append(idx.codes, code)
		}
	}

	for lang, names := range idx.names {
		for _, code := range idx.codes {
			names[code] = resolveName(sets, code, lang)
		}
	}
	return idx
}

// FromRegistry builds the index from whichever point datasets are held
// client-side. Tiled datasets contribute no species.
func FromRegistry(reg *dataset.Registry) *Index {
	trees, _ := reg.GetUnfiltered(dataset.Trees)
	fellings, _ := reg.GetUnfiltered(dataset.Fellings)
	return NewIndex(trees, fellings)
}

// resolveName takes the first feature carrying code, trees before fellings,
// that has a name in either language; the code itself otherwise.
func resolveName(sets []namedSet, code string, lang i18n.Lang) string {
	for _, s := range sets {
		for _, f := range s.data {
			if c, _ := s.schema.SpeciesOf(f.Attrs); c != code {
				continue
			}
			if name, ok := f.Attrs.Localized(lang, feature.SpeciesNames); ok {
				return name
			}
		}
	}
	return code
}

// Len is the number of distinct species.
func (idx *Index) Len() int { return len(idx.codes) }

// Has reports whether code is in the catalog.
func (idx *Index) Has(code string) bool {
	_, ok := idx.names[i18n.EN][code]
	return ok
}

// Name returns the display name of code in lang.
func (idx *Index) Name(code string, lang i18n.Lang) string {
	if n, ok := idx.names[lang][code]; ok {
		return n
	}
	return code
}

// Entries returns the catalog sorted by display name for lang. Equal names
// keep discovery order.
func (idx *Index) Entries(lang i18n.Lang) []Entry {
	entries := make([]Entry, len(idx.codes))
	for i, code := range idx.codes {
		entries[i] = Entry{ID: code, DisplayName: idx.Name(code, lang)}
	}
	col := collate.New(tag(lang))
	sort.SliceStable(entries, func(i, j int) bool {
		return col.CompareString(entries[i].DisplayName, entries[j].DisplayName) < 0
	})
	return entries
}

// BuildCatalog is NewIndex followed by Entries.
func BuildCatalog(trees, fellings feature.Collection, lang i18n.Lang) []Entry {
	return NewIndex(trees, fellings).Entries(lang)
}

func tag(lang i18n.Lang) language.Tag {
	if lang == i18n.FR {
		return language.French
	}
	return language.English
}
