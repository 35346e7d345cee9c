package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeblew999/plat-trees/internal/config"
	"github.com/joeblew999/plat-trees/internal/pmtiles"
)

const treesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[-73.6,45.5]},"properties":{"plant_year":2001,"sigle":"ACSA"}}
]}`

func newServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	for rel, data := range map[string][]byte{
		"sources/trees.geojson":  []byte(treesJSON),
		"tiles/fellings.pmtiles": pmtiles.SerializeHeader(pmtiles.HeaderV3{MaxZoom: 14}),
	} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Datasets.Fellings = config.Dataset{URL: "pmtiles://tiles/fellings.pmtiles", Layer: "fellings"}
	cfg.Datasets.Neighbourhoods.URL = ""

	s, err := New(context.Background(), Config{
		Host:    "localhost",
		Port:    "0",
		DataDir: dir,
		Trees:   cfg,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func do(s *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	s := newServer(t)

	if rec := do(s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	rec := do(s, http.MethodGet, "/api/v1/datasets", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"tiled"`) {
		t.Errorf("datasets = %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(strings.Join(rec.Header().Values("Link"), ","), `rel="species"`) {
		t.Errorf("missing Link headers: %v", rec.Header())
	}
	rec = do(s, http.MethodGet, "/api/v1/species?limit=1", nil)
	if !strings.Contains(strings.Join(rec.Header().Values("Link"), ","), `rel="first"`) {
		t.Errorf("missing pagination links: %v", rec.Header())
	}
	if rec := do(s, http.MethodGet, "/api/v1/tables", nil); !strings.Contains(rec.Body.String(), "trees") {
		t.Errorf("tables = %s", rec.Body.String())
	}
	if rec := do(s, http.MethodGet, "/", nil); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/viewer" {
		t.Errorf("root = %d %v", rec.Code, rec.Header())
	}
	if s.OpenAPI().Paths["/api/v1/viewer/stream"] == nil {
		t.Error("viewer stream not in OpenAPI")
	}
}

func TestTilesRangeAndCORS(t *testing.T) {
	s := newServer(t)

	rec := do(s, http.MethodGet, "/tiles/fellings.pmtiles", http.Header{"Range": {"bytes=0-6"}})
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "PMTiles" {
		t.Errorf("range = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
	if rec := do(s, http.MethodOptions, "/tiles/fellings.pmtiles", nil); rec.Code != http.StatusOK {
		t.Errorf("preflight = %d", rec.Code)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "de"
	if _, err := New(context.Background(), Config{DataDir: t.TempDir(), Trees: cfg}); err == nil {
		t.Error("expected validation error")
	}
}
