// Package config loads the dataset configuration of the viewer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
)

// TiledScheme prefixes the URL of a dataset served from a tile archive.
const TiledScheme = "pmtiles://"

// EnvPrefix prefixes environment overrides, e.g. TREES_DATASETS__TREES__URL.
const EnvPrefix = "TREES_"

// Dataset locates one dataset.
type Dataset struct {
	// URL is an http(s) URL or a path under the data directory for inline
	// GeoJSON, or pmtiles://<path> for a tile archive. Empty disables it.
	URL string `koanf:"url" yaml:"url"`
	// Layer is the source layer inside a tile archive.
	Layer string `koanf:"layer" yaml:"layer,omitempty"`
}

// Backend is decided once from the URL scheme.
func (d Dataset) Backend() dataset.Backend {
	if strings.HasPrefix(d.URL, TiledScheme) {
		return dataset.Tiled
	}
	return dataset.Inline
}

// ArchivePath is the archive path of a tiled dataset.
func (d Dataset) ArchivePath() string {
	return strings.TrimPrefix(d.URL, TiledScheme)
}

// YearRange is the initial slider range of a point dataset.
type YearRange struct {
	Min int `koanf:"min" yaml:"min" json:"min"`
	Max int `koanf:"max" yaml:"max" json:"max"`
}

// Datasets groups the three datasets.
type Datasets struct {
	Trees          Dataset `koanf:"trees" yaml:"trees"`
	Fellings       Dataset `koanf:"fellings" yaml:"fellings"`
	Neighbourhoods Dataset `koanf:"neighbourhoods" yaml:"neighbourhoods"`
}

// Get returns the dataset config for id.
func (d Datasets) Get(id dataset.ID) Dataset {
	switch id {
	case dataset.Fellings:
		return d.Fellings
	case dataset.Neighbourhoods:
		return d.Neighbourhoods
	}
	return d.Trees
}

// Years groups the slider ranges.
type Years struct {
	Trees    YearRange `koanf:"trees" yaml:"trees" json:"trees"`
	Fellings YearRange `koanf:"fellings" yaml:"fellings" json:"fellings"`
}

// Config is the viewer configuration.
type Config struct {
	Language string   `koanf:"language" yaml:"language"`
	Metric   string   `koanf:"metric" yaml:"metric"`
	Datasets Datasets `koanf:"datasets" yaml:"datasets"`
	Years    Years    `koanf:"years" yaml:"years"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	year := time.Now().Year()
	return &Config{
		Language: string(i18n.Default),
		Metric:   string(layers.DefaultMetric),
		Datasets: Datasets{
			Trees:          Dataset{URL: "sources/trees.geojson"},
			Fellings:       Dataset{URL: "sources/fellings.geojson"},
			Neighbourhoods: Dataset{URL: "sources/neighbourhoods.geojson"},
		},
		Years: Years{
			Trees:    YearRange{Min: 1900, Max: year},
			Fellings: YearRange{Min: 2000, Max: year},
		},
	}
}

// Load reads path over the defaults, then applies TREES_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks values the viewer cannot recover from.
func (c *Config) Validate() error {
	if _, err := i18n.Parse(c.Language); err != nil {
		return err
	}
	if _, err := layers.ParseMetric(c.Metric); err != nil {
		return err
	}
	if c.Datasets.Neighbourhoods.Backend() == dataset.Tiled {
		return fmt.Errorf("neighbourhoods dataset must be inline GeoJSON, got %q", c.Datasets.Neighbourhoods.URL)
	}
	for name, r := range map[string]YearRange{"trees": c.Years.Trees, "fellings": c.Years.Fellings} {
		if r.Min > r.Max {
			return fmt.Errorf("years.%s: min %d is after max %d", name, r.Min, r.Max)
		}
	}
	return nil
}
