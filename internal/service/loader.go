package service

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-trees/internal/config"
	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/feature"
)

var kinds = map[dataset.ID]feature.Kind{
	dataset.Trees:    feature.AliveTree,
	dataset.Fellings: feature.FelledTree,
}

// Loader turns the dataset configuration into loaded sources.
type Loader struct {
	sources *SourceService
	tiles   *TileService
	log     *slog.Logger
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		sources: NewSourceService(dataDir),
		tiles:   NewTileService(dataDir),
		log:     log,
	}
}

// Load fetches every configured dataset concurrently. A dataset that fails
// to load is logged and replaced by an empty collection so the others still
// display. Datasets with no URL are left out.
func (l *Loader) Load(ctx context.Context, cfg config.Datasets) ([]*dataset.Source, error) {
	ids := []dataset.ID{dataset.Trees, dataset.Fellings, dataset.Neighbourhoods}
	out := make([]*dataset.Source, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		dc := cfg.Get(id)
		if dc.URL == "" {
			continue
		}
		g.Go(func() error {
			out[i] = l.load(ctx, id, dc)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sources []*dataset.Source
	for _, s := range out {
		if s != nil {
			sources = append(sources, s)
		}
	}
	return sources, nil
}

func (l *Loader) load(ctx context.Context, id dataset.ID, dc config.Dataset) *dataset.Source {
	if dc.Backend() == dataset.Tiled {
		return l.loadTiled(id, dc)
	}

	data, err := l.sources.Fetch(ctx, dc.URL)
	if err != nil {
		l.log.Warn("dataset unavailable, showing it empty", "dataset", id, "url", dc.URL, "error", err)
		data = nil
	}
	fc := feature.Decode(data)

	if id == dataset.Neighbourhoods {
		src := dataset.NewAreas(id, fc)
		l.log.Info("loaded dataset", "dataset", id, "backend", src.Backend, "features", src.Len())
		return src
	}
	src := dataset.NewInline(id, feature.Normalize(fc, kinds[id]))
	l.log.Info("loaded dataset", "dataset", id, "backend", src.Backend,
		"inputs", len(fc.Features), "features", src.Len())
	return src
}

func (l *Loader) loadTiled(id dataset.ID, dc config.Dataset) *dataset.Source {
	path := dc.ArchivePath()
	if Remote(path) {
		l.log.Info("tiled dataset", "dataset", id, "url", path)
		return dataset.NewTiled(id, config.TiledScheme+path, dc.Layer, nil)
	}

	var bounds *orb.Bound
	local, err := l.sources.Resolve(path)
	if err == nil {
		var b orb.Bound
		if b, err = l.tiles.Bounds(local); err == nil {
			bounds = &b
		}
	}
	if err != nil {
		l.log.Warn("tile archive header unreadable", "dataset", id, "path", path, "error", err)
	}
	l.log.Info("tiled dataset", "dataset", id, "path", path)
	return dataset.NewTiled(id, TileURL(path), dc.Layer, bounds)
}

// Describe summarises sources for the REST API.
func Describe(sources []*dataset.Source) []DatasetInfo {
	infos := make([]DatasetInfo, 0, len(sources))
	for _, s := range sources {
		info := DatasetInfo{
			ID:          string(s.ID),
			Backend:     s.Backend.String(),
			URL:         s.URL,
			SourceLayer: s.SourceLayer,
			Features:    s.Len(),
		}
		if b, ok := s.Bounds(); ok {
			info.Bounds = BoundSlice(b)
		}
		infos = append(infos, info)
	}
	return infos
}

// TileURL is the browser URL of a local archive served under /tiles/.
func TileURL(path string) string {
	return config.TiledScheme + "/tiles/" + filepath.Base(path)
}
