// Package viewer exposes viewer sessions over Datastar SSE. One long-lived
// stream per browser carries map commands and panel fragments; every user
// action is a short POST that feeds the session's event queue.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/humastar"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
	"github.com/joeblew999/plat-trees/internal/mapengine"
	"github.com/joeblew999/plat-trees/internal/selection"
	"github.com/joeblew999/plat-trees/internal/templates"
	core "github.com/joeblew999/plat-trees/internal/viewer"
)

// MapCommandEvent is the browser event carrying map commands.
const MapCommandEvent = "map-command"

// Element ids patched by the stream.
const (
	CardSelector    = "#card"
	LegendSelector  = "#legend"
	SpeciesSelector = "#species"
)

// Handler serves the viewer stream and actions.
type Handler struct {
	humastar.Handler
	hub *core.Hub
	log *slog.Logger
}

// NewHandler creates a viewer handler.
func NewHandler(hub *core.Hub, renderer *templates.Renderer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		hub:     hub,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("viewer")
	huma.Get(api, "/api/v1/viewer/stream", h.Stream, tags)
	huma.Post(api, "/api/v1/viewer/{session}/filter", h.Filter, tags)
	huma.Post(api, "/api/v1/viewer/{session}/toggle", h.Toggle, tags)
	huma.Post(api, "/api/v1/viewer/{session}/metric", h.Metric, tags)
	huma.Post(api, "/api/v1/viewer/{session}/species", h.Species, tags)
	huma.Delete(api, "/api/v1/viewer/{session}/species", h.ClearSpecies, tags)
	huma.Post(api, "/api/v1/viewer/{session}/select", h.Select, tags)
	huma.Post(api, "/api/v1/viewer/{session}/language", h.Language, tags)
	huma.Post(api, "/api/v1/viewer/{session}/reset", h.Reset, tags)
	huma.Get(api, "/api/v1/viewer/{session}/state", h.State, tags)
}

// Stream opens a session and forwards its commands until the client leaves.
func (h *Handler) Stream(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Handler.Stream(func(ctx context.Context, sse humastar.SSE) {
		s, err := h.hub.Open(ctx)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		defer h.hub.Close(s.ID)
		sse.Signals(map[string]any{"session": s.ID})

		for {
			cmds, err := s.Next(ctx)
			if err != nil {
				return
			}
			for _, cmd := range cmds {
				if err := h.send(sse, cmd); err != nil {
					h.log.Debug("viewer stream closed", "session", s.ID, "error", err)
					return
				}
			}
		}
	}), nil
}

// send renders panel commands as fragments or signals and forwards map
// commands as custom events.
func (h *Handler) send(sse humastar.SSE, cmd mapengine.Command) error {
	switch {
	case cmd.Op == mapengine.OpShowCard && cmd.Card != nil:
		return sse.Patch(h.Fragment("card", *cmd.Card), CardSelector)
	case cmd.Op == mapengine.OpShowLegend && cmd.Legend != nil:
		return sse.Patch(h.Fragment("legend", *cmd.Legend), LegendSelector)
	case cmd.Op == mapengine.OpShowSpecies && cmd.Species != nil:
		if err := sse.Patch(h.Fragment("species-options", *cmd.Species), SpeciesSelector); err != nil {
			return err
		}
		return sse.Signals(map[string]any{"species": cmd.Species.Selected})
	case cmd.Op == mapengine.OpShowYears && cmd.Years != nil:
		return sse.Signals(*cmd.Years)
	}
	return sse.DispatchCustomEvent(MapCommandEvent, cmd)
}

// SessionInput addresses a session and carries Datastar signals.
type SessionInput struct {
	Session string `path:"session" doc:"Viewer session id"`
	RawBody []byte
}

type SessionPath struct {
	Session string `path:"session" doc:"Viewer session id"`
}

func (h *Handler) session(id string) (*core.Session, error) {
	s, err := h.hub.Get(id)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return s, nil
}

// act runs fn against the session inside an SSE response so failures reach
// the page as an error signal.
func (h *Handler) act(s *core.Session, fn func(ctx context.Context, s *core.Session) error) *huma.StreamResponse {
	return h.Handler.Stream(func(ctx context.Context, sse humastar.SSE) {
		if err := fn(ctx, s); err != nil {
			h.log.Warn("viewer action failed", "session", s.ID, "error", err)
			sse.Error(err.Error())
			return
		}
		sse.Signals(map[string]any{"error": ""})
	})
}

func parse(input *SessionInput) (humastar.Signals, error) {
	in := humastar.SignalsInput{RawBody: input.RawBody}
	return in.MustParse()
}

// Filter sets the year ranges from treesmin, treesmax, fellingsmin and
// fellingsmax. Missing signals keep their current value.
func (h *Handler) Filter(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	var u core.YearUpdate
	for key, dst := range map[string]**int{
		"treesmin": &u.TreesMin, "treesmax": &u.TreesMax,
		"fellingsmin": &u.FellingsMin, "fellingsmax": &u.FellingsMax,
	} {
		if v, ok := signals.Int(key); ok {
			*dst = &v
		}
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.SetYearRanges(ctx, u)
	}), nil
}

// Toggle shows or hides the layers of one toggle.
func (h *Handler) Toggle(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	toggle := signals.String("toggle")
	if _, err := layers.ParseToggle(toggle); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	visible := signals.Bool("visible")
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.SetLayerVisible(ctx, toggle, visible)
	}), nil
}

// Metric recolors the neighbourhood overlay.
func (h *Handler) Metric(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	metric := signals.String("metric")
	if _, err := layers.ParseMetric(metric); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.SetOverlayMetric(ctx, metric)
	}), nil
}

// Species filters both point datasets by the species signal; an empty
// value clears the filter.
func (h *Handler) Species(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	id := signals.String("species")
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.FilterBySpecies(ctx, id)
	}), nil
}

// ClearSpecies removes the species filter and the selection.
func (h *Handler) ClearSpecies(ctx context.Context, input *SessionPath) (*huma.StreamResponse, error) {
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.ClearSpeciesFilter(ctx)
	}), nil
}

// Select shows the card of the clicked feature. A missing feature clears
// the selection.
func (h *Handler) Select(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	layer := signals.String("layer")
	f, err := decodeFeature(signals["feature"])
	if err != nil {
		return nil, huma.Error400BadRequest("invalid feature: " + err.Error())
	}
	if f != nil {
		if _, err := selection.KindForLayer(layer); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		if f == nil {
			return s.ClearSelection(ctx)
		}
		return s.Select(ctx, layer, f.Geometry, f.Properties)
	}), nil
}

func decodeFeature(v any) (*geojson.Feature, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	f, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return nil, err
	}
	if f.Geometry == nil {
		return nil, errors.New("feature has no geometry")
	}
	return f, nil
}

// Language relabels the session.
func (h *Handler) Language(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	code := signals.String("language")
	if _, err := i18n.Parse(code); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.SetLanguage(ctx, code)
	}), nil
}

// Reset restores the configured year ranges and clears species and selection.
func (h *Handler) Reset(ctx context.Context, input *SessionPath) (*huma.StreamResponse, error) {
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.act(s, func(ctx context.Context, s *core.Session) error {
		return s.ResetFilters(ctx)
	}), nil
}

// State returns a snapshot of the session as JSON.
func (h *Handler) State(ctx context.Context, input *SessionPath) (*struct{ Body core.State }, error) {
	s, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	st, err := s.State(ctx)
	if err != nil {
		return nil, huma.Error410Gone(err.Error())
	}
	return &struct{ Body core.State }{Body: st}, nil
}
