package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/db"
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/humastar"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/layers"
	"github.com/joeblew999/plat-trees/internal/viewer"
)

func testSources() []*dataset.Source {
	trees := feature.Collection{
		{Point: orb.Point{-73.6, 45.5}, Attrs: feature.Attrs{"sigle": "ACSA", "essence_ang": "Silver maple", "essence_fr": "Érable argenté", "plant_year": 2001.0}},
		{Point: orb.Point{-73.5, 45.6}, Attrs: feature.Attrs{"sigle": "MAAM", "essence_ang": "Maple", "essence_fr": "Érable", "plant_year": 2015.0}},
		{Point: orb.Point{-73.4, 45.7}, Attrs: feature.Attrs{"sigle": "QURU", "essence_ang": "Red oak", "plant_year": 1980.0}},
	}
	return []*dataset.Source{
		dataset.NewInline(dataset.Trees, trees),
		dataset.NewTiled(dataset.Fellings, "pmtiles:///tiles/fellings.pmtiles", "fellings", &orb.Bound{Min: orb.Point{-74, 45}, Max: orb.Point{-73, 46}}),
	}
}

func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	hub := viewer.NewHub(testSources(), viewer.Defaults{
		Specs: filter.Specs{
			Trees:    filter.Spec{YearMin: 1900, YearMax: 2025},
			Fellings: filter.Spec{YearMin: 2000, YearMax: 2025},
		},
		Metric: layers.Heat,
		Lang:   i18n.EN,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(hub.CloseAll)

	_, api := humatest.New(t, huma.DefaultConfig("test", "1.0.0"))
	RegisterRoutes(api, &Services{Hub: hub})
	return api
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if body := decode[HealthBody](t, resp.Body); body.Status != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestDatasets(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/api/v1/datasets")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	var infos []struct {
		ID       string    `json:"id"`
		Backend  string    `json:"backend"`
		Features int       `json:"features"`
		Bounds   []float64 `json:"bounds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Features != 3 || infos[1].Backend != "tiled" || len(infos[1].Bounds) != 4 {
		t.Errorf("infos = %+v", infos)
	}
}

func TestSpeciesPaginated(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/api/v1/species?lang=fr&offset=0&limit=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	page := decode[humastar.PageBody[struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}]](t, resp.Body)
	if page.Total != 3 || len(page.Data) != 2 {
		t.Fatalf("page = %+v", page)
	}
	// Collated French order: Érable, Érable argenté, Red oak.
	if page.Data[0].ID != "MAAM" || page.Data[1].ID != "ACSA" {
		t.Errorf("order = %+v", page.Data)
	}

	if resp := api.Get("/api/v1/species?lang=de"); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown language status = %d", resp.Code)
	}
}

func TestFilterPreview(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Post("/api/v1/filter/preview", map[string]any{
		"trees":   map[string]any{"yearMin": 2000, "yearMax": 2020},
		"species": "MAAM",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	var effects []struct {
		Dataset string `json:"dataset"`
		Kind    string `json:"kind"`
		Count   int    `json:"count"`
		Filter  []any  `json:"filter"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&effects); err != nil {
		t.Fatal(err)
	}
	if len(effects) != 2 {
		t.Fatalf("effects = %+v", effects)
	}
	if effects[0].Dataset != "trees" || effects[0].Count != 1 {
		t.Errorf("trees effect = %+v", effects[0])
	}
	if effects[1].Kind != string(filter.SetLayerFilter) || effects[1].Count != -1 || effects[1].Filter[0] != "all" {
		t.Errorf("fellings effect = %+v", effects[1])
	}
}

func TestMetrics(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/api/v1/metrics?lang=en")
	metrics := decode[[]MetricBody](t, resp.Body)
	if len(metrics) != len(layers.Metrics) {
		t.Fatalf("metrics = %+v", metrics)
	}
	for _, m := range metrics {
		if len(m.Stops) != 5 || m.Title == "" {
			t.Errorf("metric %s = %+v", m.Metric, m)
		}
	}
}

func TestDBHandler(t *testing.T) {
	conn, err := db.Open(db.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := db.Materialize(context.Background(), conn, testSources()); err != nil {
		t.Fatal(err)
	}

	_, api := humatest.New(t, huma.DefaultConfig("test", "1.0.0"))
	NewDBHandler(conn).RegisterRoutes(api)

	tables := decode[TablesBody](t, api.Get("/api/v1/tables").Body)
	if len(tables.Tables) != 1 || tables.Tables[0] != "trees" {
		t.Errorf("tables = %v", tables.Tables)
	}

	resp := api.Post("/api/v1/query", map[string]any{"query": "SELECT species FROM trees WHERE year >= 2000 ORDER BY species"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body.String())
	}
	res := decode[QueryResult](t, resp.Body)
	if res.Count != 2 || res.Rows[0]["species"] != "ACSA" {
		t.Errorf("result = %+v", res)
	}

	for _, q := range []string{"DROP TABLE trees", "SELECT 1; DELETE FROM trees"} {
		if resp := api.Post("/api/v1/query", map[string]any{"query": q}); resp.Code != http.StatusBadRequest {
			t.Errorf("%q status = %d", q, resp.Code)
		}
	}
}

func TestDBUnavailable(t *testing.T) {
	_, api := humatest.New(t, huma.DefaultConfig("test", "1.0.0"))
	NewDBHandler(nil).RegisterRoutes(api)
	if resp := api.Get("/api/v1/tables"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.Code)
	}
}

func TestLinkTransformer(t *testing.T) {
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)
	RegisterRoutes(api, &Services{})

	resp := api.Get("/health")
	links := strings.Join(resp.Header().Values("Link"), ",")
	if !strings.Contains(links, `rel="datasets"`) {
		t.Errorf("links = %q", links)
	}
}
