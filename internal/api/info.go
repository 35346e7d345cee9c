package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-trees/internal/config"
)

type InfoHandler struct {
	dataDir string
	dbOK    bool
	cfg     *config.Config
}

func NewInfoHandler(dataDir string, dbOK bool, cfg *config.Config) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, cfg: cfg}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string       `json:"name" doc:"Service name"`
	Version  string       `json:"version" doc:"Service version"`
	DataDir  string       `json:"data_dir" doc:"Data directory path"`
	DB       bool         `json:"db" doc:"Whether database is available"`
	Language string       `json:"language" doc:"Default display language"`
	Metric   string       `json:"metric" doc:"Default overlay metric"`
	Years    config.Years `json:"years" doc:"Initial year ranges"`
	Features []string     `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	cfg := h.cfg
	if cfg == nil {
		cfg = config.Default()
	}
	features := []string{"geojson", "pmtiles", "datastar"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-trees",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Language: cfg.Language,
		Metric:   cfg.Metric,
		Years:    cfg.Years,
		Features: features,
	}}, nil
}
