package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-trees/internal/api"
	"github.com/joeblew999/plat-trees/internal/api/viewer"
	"github.com/joeblew999/plat-trees/internal/config"
	"github.com/joeblew999/plat-trees/internal/db"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/humastar"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
	"github.com/joeblew999/plat-trees/internal/service"
	"github.com/joeblew999/plat-trees/internal/templates"
	core "github.com/joeblew999/plat-trees/internal/viewer"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and page templates
	Trees   *config.Config
	Log     *slog.Logger
}

// Server is the tree viewer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	hub      *core.Hub
	services *api.Services
	renderer *templates.Renderer
	log      *slog.Logger
}

// New loads the datasets and assembles the server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Trees == nil {
		cfg.Trees = config.Default()
	}
	if err := cfg.Trees.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	sources, err := service.NewLoader(cfg.DataDir, log).Load(ctx, cfg.Trees.Datasets)
	if err != nil {
		return nil, fmt.Errorf("loading datasets: %w", err)
	}
	defaults, err := Defaults(cfg.Trees)
	if err != nil {
		return nil, err
	}
	hub := core.NewHub(sources, defaults, log)

	renderer, err := templates.New(templates.Dir(filepath.Join(cfg.WebDir, "templates", "fragments")))
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-trees API", "1.0.0")
	humaConfig.Info.Description = "Urban tree viewer: dataset introspection, species catalog and live map sessions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers,
		api.LinkTransformer(),
		humastar.PaginationTransformer(),
	)

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		hub:      hub,
		services: &api.Services{Hub: hub, Tile: service.NewTileService(cfg.DataDir)},
		renderer: renderer,
		log:      log,
	}

	// In-memory DuckDB mirror of the inline datasets
	conn, err := db.Open(db.Config{DataDir: cfg.DataDir})
	if err == nil {
		if tables, err := db.Materialize(ctx, conn, sources); err != nil {
			log.Warn("duckdb mirror incomplete", "error", err)
		} else {
			log.Info("duckdb mirror ready", "tables", tables)
		}
		s.db = conn
	} else {
		log.Warn("duckdb unavailable", "error", err)
	}

	s.routes()
	return s, nil
}

// Defaults turns the configuration into the initial session settings.
func Defaults(cfg *config.Config) (core.Defaults, error) {
	lang, err := i18n.Parse(cfg.Language)
	if err != nil {
		return core.Defaults{}, err
	}
	metric, err := layers.ParseMetric(cfg.Metric)
	if err != nil {
		return core.Defaults{}, err
	}
	return core.Defaults{
		Specs: filter.Specs{
			Trees:    filter.Spec{YearMin: cfg.Years.Trees.Min, YearMax: cfg.Years.Trees.Max},
			Fellings: filter.Spec{YearMin: cfg.Years.Fellings.Min, YearMax: cfg.Years.Fellings.Max},
		},
		Metric: metric,
		Lang:   lang,
	}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Hub returns the session hub.
func (s *Server) Hub() *core.Hub {
	return s.hub
}

// Close ends every viewer session and closes the database.
func (s *Server) Close() error {
	s.hub.CloseAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.config.Trees).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.hub, s.renderer, s.log).RegisterRoutes(s.humaAPI)

	// Static files and tile archives
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, templatePath)
}

// handleTiles serves PMTiles archives with CORS and HTTP Range support.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	files := http.FileServer(http.Dir(tilesDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		files.ServeHTTP(w, r)
	})
}
