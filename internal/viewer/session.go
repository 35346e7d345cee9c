// Package viewer runs one map session per connected browser. Every state
// change of a session happens on its own event goroutine, in arrival order.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
	"github.com/joeblew999/plat-trees/internal/mapengine"
	"github.com/joeblew999/plat-trees/internal/selection"
	"github.com/joeblew999/plat-trees/internal/species"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNoSession is returned for unknown session ids.
	ErrNoSession = errors.New("no such session")
)

// Defaults are the initial filter, overlay and language of new sessions.
type Defaults struct {
	Specs  filter.Specs
	Metric layers.Metric
	Lang   i18n.Lang
}

// State is a snapshot of a session.
type State struct {
	ID        string                 `json:"id"`
	Specs     filter.Specs           `json:"specs"`
	Language  i18n.Lang              `json:"language"`
	Metric    layers.Metric          `json:"metric"`
	Visible   map[layers.Toggle]bool `json:"visible"`
	Selection selection.Kind         `json:"selection,omitempty"`
}

// Session is one viewer's map state.
type Session struct {
	ID string

	reg       *dataset.Registry
	index     *species.Index
	filters   *filter.Engine
	layers    *layers.Coordinator
	selection *selection.Manager
	cmds      *mapengine.Commands

	defaults Defaults
	specs    filter.Specs
	lang     i18n.Lang

	out    *outbox
	events chan func()
	done   chan struct{}
	log    *slog.Logger
}

func newSession(id string, sources []*dataset.Source, index *species.Index, d Defaults, log *slog.Logger) *Session {
	s := &Session{
		ID:       id,
		reg:      dataset.NewRegistry(sources...),
		index:    index,
		defaults: d,
		specs:    d.Specs,
		lang:     d.Lang,
		out:      newOutbox(),
		events:   make(chan func()),
		done:     make(chan struct{}),
		log:      log.With("session", id),
	}
	s.cmds = &mapengine.Commands{Emit: s.out.push}
	s.filters = filter.NewEngine(s.reg, s.cmds)
	s.layers = layers.NewCoordinator(s.reg, s.cmds, s.cmds, d.Metric, d.Lang)
	s.selection = selection.NewManager(s.cmds, s.cmds, d.Lang)
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case ev := <-s.events:
			ev()
		case <-s.done:
			return
		}
	}
}

// do runs fn on the event goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case s.events <- func() { res <- fn() }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event goroutine. Pending commands are discarded.
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Next blocks until commands are available for the viewer.
func (s *Session) Next(ctx context.Context) ([]mapengine.Command, error) {
	return s.out.next(ctx, s.done)
}

// Sync sends the full current state: camera, filters, layers, overlay,
// species list, card and highlight.
func (s *Session) Sync(ctx context.Context) error {
	return s.do(ctx, func() error {
		if b, ok := s.reg.Bounds(); ok {
			s.cmds.FitBounds(b)
		}
		if err := s.applyFilters(); err != nil {
			return err
		}
		s.layers.Refresh()
		s.showYears()
		s.showSpecies()
		s.selection.Render()
		return nil
	})
}

// YearUpdate changes some of the year bounds. Nil fields keep their
// current value.
type YearUpdate struct {
	TreesMin, TreesMax       *int
	FellingsMin, FellingsMax *int
}

// SetYearRanges merges u into the current year ranges, keeping any species
// constraint.
func (s *Session) SetYearRanges(ctx context.Context, u YearUpdate) error {
	return s.do(ctx, func() error {
		for _, f := range []struct {
			src *int
			dst *int
		}{
			{u.TreesMin, &s.specs.Trees.YearMin},
			{u.TreesMax, &s.specs.Trees.YearMax},
			{u.FellingsMin, &s.specs.Fellings.YearMin},
			{u.FellingsMax, &s.specs.Fellings.YearMax},
		} {
			if f.src != nil {
				*f.dst = *f.src
			}
		}
		return s.applyFilters()
	})
}

// FilterBySpecies restricts both point datasets to one species.
func (s *Session) FilterBySpecies(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.ClearSpeciesFilter(ctx)
	}
	return s.do(ctx, func() error {
		s.specs = s.specs.WithSpecies(id)
		if err := s.applyFilters(); err != nil {
			return err
		}
		s.showSpecies()
		return nil
	})
}

// ClearSpeciesFilter restores year-only filtering and clears the selection.
func (s *Session) ClearSpeciesFilter(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.specs = s.specs.WithSpecies("")
		if err := s.applyFilters(); err != nil {
			return err
		}
		s.selection.Clear()
		s.showSpecies()
		return nil
	})
}

// ResetFilters restores the default year ranges, moves the sliders back and
// clears species and selection.
func (s *Session) ResetFilters(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.specs = s.defaults.Specs.WithSpecies("")
		if err := s.applyFilters(); err != nil {
			return err
		}
		s.showYears()
		s.selection.Clear()
		s.showSpecies()
		return nil
	})
}

// SetLayerVisible flips a layer toggle.
func (s *Session) SetLayerVisible(ctx context.Context, toggle string, visible bool) error {
	t, err := layers.ParseToggle(toggle)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error {
		_, err := s.layers.SetLayerVisible(t, visible)
		return err
	})
}

// SetOverlayMetric recolors the neighbourhood overlay.
func (s *Session) SetOverlayMetric(ctx context.Context, metric string) error {
	m, err := layers.ParseMetric(metric)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error {
		_, err := s.layers.SetOverlayMetric(m)
		return err
	})
}

// Select shows the detail card of a clicked feature on a selectable layer.
func (s *Session) Select(ctx context.Context, layer string, geom orb.Geometry, attrs map[string]any) error {
	kind, err := selection.KindForLayer(layer)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error {
		return s.selection.Select(selection.Selected{
			Geometry: geom,
			Attrs:    feature.Attrs(attrs).Clone(),
			Kind:     kind,
		})
	})
}

// ClearSelection empties the highlight and card.
func (s *Session) ClearSelection(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.selection.Clear()
		return nil
	})
}

// SetLanguage relabels the species list, card and legend.
func (s *Session) SetLanguage(ctx context.Context, code string) error {
	lang, err := i18n.Parse(code)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if lang == s.lang {
			return nil
		}
		s.lang = lang
		s.showSpecies()
		s.selection.SetLanguage(lang)
		s.layers.SetLanguage(lang)
		return nil
	})
}

// State returns a snapshot of the session.
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.do(ctx, func() error {
		st = State{
			ID:       s.ID,
			Specs:    s.specs,
			Language: s.lang,
			Metric:   s.layers.Metric(),
			Visible:  make(map[layers.Toggle]bool, len(layers.Toggles)),
		}
		for _, t := range layers.Toggles {
			st.Visible[t] = s.layers.Visible(t)
		}
		if cur, ok := s.selection.Current(); ok {
			st.Selection = cur.Kind
		}
		return nil
	})
	return st, err
}

func (s *Session) applyFilters() error {
	effects, err := s.filters.Apply(s.specs)
	if err != nil {
		return fmt.Errorf("applying filters: %w", err)
	}
	for _, e := range effects {
		s.log.Debug("filter applied", "dataset", e.Dataset, "kind", e.Kind, "count", e.Count)
	}
	return nil
}

func (s *Session) showSpecies() {
	list := mapengine.SpeciesList{
		Selected: s.specs.Trees.SpeciesID,
		All:      i18n.Label(s.lang, "all_species"),
		Options:  []mapengine.SpeciesOption{},
	}
	for _, e := range s.index.Entries(s.lang) {
		list.Options = append(list.Options, mapengine.SpeciesOption{ID: e.ID, Name: e.DisplayName})
	}
	s.cmds.ShowSpecies(list)
}

func (s *Session) showYears() {
	s.cmds.ShowYears(mapengine.YearRanges{
		TreesMin:    s.specs.Trees.YearMin,
		TreesMax:    s.specs.Trees.YearMax,
		FellingsMin: s.specs.Fellings.YearMin,
		FellingsMax: s.specs.Fellings.YearMax,
	})
}
