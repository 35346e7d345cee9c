// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/humastar"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
	"github.com/joeblew999/plat-trees/internal/mapengine"
	"github.com/joeblew999/plat-trees/internal/service"
	"github.com/joeblew999/plat-trees/internal/species"
	"github.com/joeblew999/plat-trees/internal/viewer"
)

// Services holds the dependencies of the API handlers.
type Services struct {
	Hub  *viewer.Hub
	Tile *service.TileService
}

// RegisterRoutes registers every Register* method of the REST handler.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"1.0.0"`
	Sessions int    `json:"sessions" doc:"Connected viewer sessions"`
}

type SpeciesInput struct {
	Lang   string `query:"lang" enum:"en,fr" default:"en" doc:"Display language"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"First item"`
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type PreviewBody struct {
	Trees    *filter.Spec `json:"trees,omitempty" doc:"Trees filter; defaults to the configured range"`
	Fellings *filter.Spec `json:"fellings,omitempty" doc:"Fellings filter; defaults to the configured range"`
	Species  string       `json:"species,omitempty" doc:"Species code applied to both datasets"`
}

type MetricBody struct {
	Metric string           `json:"metric" doc:"Metric name" example:"heat"`
	Title  string           `json:"title" doc:"Localized title"`
	Stops  []mapengine.Stop `json:"stops" doc:"Ascending color classes"`
}

type MetricsInput struct {
	Lang string `query:"lang" enum:"en,fr" default:"en" doc:"Display language"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterDatasets registers dataset introspection routes.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Get(api, "/api/v1/datasets", h.GetDatasets, huma.OperationTags("datasets"))
	huma.Post(api, "/api/v1/filter/preview", h.PreviewFilter, huma.OperationTags("datasets"))
}

// RegisterSpecies registers the species catalog route.
func (h *APIHandler) RegisterSpecies(api huma.API) {
	huma.Get(api, "/api/v1/species", h.GetSpecies, huma.OperationTags("species"))
}

// RegisterMetrics registers the overlay metric route.
func (h *APIHandler) RegisterMetrics(api huma.API) {
	huma.Get(api, "/api/v1/metrics", h.GetMetrics, huma.OperationTags("overlay"))
}

// RegisterTiles registers tile archive listing routes.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/tiles", h.GetTiles, huma.OperationTags("datasets"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: "1.0.0"}
	if h.svc != nil && h.svc.Hub != nil {
		body.Sessions = h.svc.Hub.Len()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetDatasets(ctx context.Context, input *struct{}) (*struct{ Body []service.DatasetInfo }, error) {
	if h.svc == nil || h.svc.Hub == nil {
		return &struct{ Body []service.DatasetInfo }{Body: []service.DatasetInfo{}}, nil
	}
	return &struct{ Body []service.DatasetInfo }{Body: service.Describe(h.svc.Hub.Sources())}, nil
}

func (h *APIHandler) GetSpecies(ctx context.Context, input *SpeciesInput) (*struct {
	Body humastar.PageBody[species.Entry]
}, error) {
	if h.svc == nil || h.svc.Hub == nil {
		return nil, huma.Error503ServiceUnavailable("datasets not loaded")
	}
	lang, err := i18n.Parse(input.Lang)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	entries := h.svc.Hub.Index().Entries(lang)
	return &struct {
		Body humastar.PageBody[species.Entry]
	}{Body: humastar.Page(entries, input.Offset, input.Limit)}, nil
}

// PreviewFilter computes filter effects without touching any session.
func (h *APIHandler) PreviewFilter(ctx context.Context, input *struct{ Body PreviewBody }) (*struct{ Body []filter.Effect }, error) {
	if h.svc == nil || h.svc.Hub == nil {
		return nil, huma.Error503ServiceUnavailable("datasets not loaded")
	}
	specs := h.svc.Hub.Defaults().Specs
	if input.Body.Trees != nil {
		specs.Trees = *input.Body.Trees
	}
	if input.Body.Fellings != nil {
		specs.Fellings = *input.Body.Fellings
	}
	if input.Body.Species != "" {
		specs = specs.WithSpecies(input.Body.Species)
	}

	effects, err := filter.NewEngine(dataset.NewRegistry(h.svc.Hub.Sources()...), nil).Apply(specs)
	if err != nil {
		return nil, huma.Error500InternalServerError("filter failed", err)
	}
	if effects == nil {
		effects = []filter.Effect{}
	}
	return &struct{ Body []filter.Effect }{Body: effects}, nil
}

func (h *APIHandler) GetMetrics(ctx context.Context, input *MetricsInput) (*struct{ Body []MetricBody }, error) {
	lang, err := i18n.Parse(input.Lang)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := make([]MetricBody, 0, len(layers.Metrics))
	for _, m := range layers.Metrics {
		l := layers.LegendFor(m, lang)
		out = append(out, MetricBody{Metric: l.Metric, Title: l.Title, Stops: l.Stops})
	}
	return &struct{ Body []MetricBody }{Body: out}, nil
}

func (h *APIHandler) GetTiles(ctx context.Context, input *struct{}) (*struct{ Body []service.TileFile }, error) {
	if h.svc == nil || h.svc.Tile == nil {
		return &struct{ Body []service.TileFile }{Body: []service.TileFile{}}, nil
	}
	tiles, err := h.svc.Tile.List()
	if err != nil {
		return &struct{ Body []service.TileFile }{Body: []service.TileFile{}}, nil
	}
	return &struct{ Body []service.TileFile }{Body: tiles}, nil
}
