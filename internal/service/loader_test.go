package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeblew999/plat-trees/internal/config"
	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/pmtiles"
)

const treesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[-73.6,45.5]},"properties":{"plant_year":2001,"sigle":"ACSA"}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[-73.5,45.6]},"properties":{"plant_year":2015,"sigle":"MAAM"}},
{"type":"Feature","geometry":null,"properties":{"plant_year":2015}}
]}`

const areasJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[-73.7,45.4],[-73.4,45.4],[-73.4,45.7],[-73.7,45.4]]]},"properties":{"name":"Plateau","heat":3}}
]}`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func byID(sources []*dataset.Source) map[dataset.ID]*dataset.Source {
	m := map[dataset.ID]*dataset.Source{}
	for _, s := range sources {
		m[s.ID] = s
	}
	return m
}

func TestLoadMixedBackends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/trees.geojson", []byte(treesJSON))
	writeFile(t, dir, "sources/neighbourhoods.geojson", []byte(areasJSON))
	writeFile(t, dir, "tiles/fellings.pmtiles", pmtiles.SerializeHeader(pmtiles.HeaderV3{
		MinLonE7: pmtiles.E7(-74), MinLatE7: pmtiles.E7(45),
		MaxLonE7: pmtiles.E7(-73), MaxLatE7: pmtiles.E7(46),
	}))

	cfg := config.Datasets{
		Trees:          config.Dataset{URL: "sources/trees.geojson"},
		Fellings:       config.Dataset{URL: "pmtiles://tiles/fellings.pmtiles", Layer: "fellings"},
		Neighbourhoods: config.Dataset{URL: "sources/neighbourhoods.geojson"},
	}
	sources, err := NewLoader(dir, quiet()).Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	got := byID(sources)
	if len(got) != 3 {
		t.Fatalf("got %d sources", len(got))
	}
	if n := got[dataset.Trees].Len(); n != 2 {
		t.Errorf("trees = %d features, want 2 (null geometry dropped)", n)
	}
	f := got[dataset.Fellings]
	if f.Backend != dataset.Tiled || f.URL != "pmtiles:///tiles/fellings.pmtiles" || f.SourceLayer != "fellings" {
		t.Errorf("fellings = %+v", f)
	}
	if b, ok := f.Bounds(); !ok || b.Min[0] != -74 {
		t.Errorf("fellings bounds = %v %v", b, ok)
	}
	if n := got[dataset.Neighbourhoods].Len(); n != 1 {
		t.Errorf("neighbourhoods = %d", n)
	}
}

func TestLoadPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/trees.geojson" {
			io.WriteString(w, treesJSON)
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.Datasets{
		Trees:    config.Dataset{URL: srv.URL + "/trees.geojson"},
		Fellings: config.Dataset{URL: srv.URL + "/fellings.geojson"},
	}
	sources, err := NewLoader(t.TempDir(), quiet()).Load(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	got := byID(sources)
	if got[dataset.Trees].Len() != 2 {
		t.Errorf("trees = %d", got[dataset.Trees].Len())
	}
	if f, ok := got[dataset.Fellings]; !ok || f.Len() != 0 {
		t.Errorf("failed dataset should load empty, got %+v", f)
	}
	if _, ok := got[dataset.Neighbourhoods]; ok {
		t.Error("unconfigured dataset should be absent")
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	s := NewSourceService(t.TempDir())
	if _, err := s.Resolve("../etc/passwd"); err == nil {
		t.Error("expected escape to be rejected")
	}
	if _, err := s.Resolve("sources/trees.geojson"); err != nil {
		t.Error(err)
	}
}

func TestDescribe(t *testing.T) {
	infos := Describe([]*dataset.Source{
		dataset.NewTiled(dataset.Trees, "pmtiles:///tiles/trees.pmtiles", "trees", nil),
	})
	if len(infos) != 1 || infos[0].Backend != "tiled" || infos[0].Features != -1 || infos[0].Bounds != nil {
		t.Errorf("infos = %+v", infos)
	}
}

func TestTileList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tiles/a.pmtiles", pmtiles.SerializeHeader(pmtiles.HeaderV3{MaxZoom: 14}))
	writeFile(t, dir, "tiles/broken.pmtiles", []byte("nope"))
	writeFile(t, dir, "tiles/readme.txt", []byte("x"))

	files, err := NewTileService(dir).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "a.pmtiles" || files[0].MaxZoom != 14 {
		t.Errorf("files = %+v", files)
	}
}

func TestLoadLogsInputAndPointCounts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources/trees.geojson", []byte(`{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"MultiPoint","coordinates":[[-73.6,45.5],[-73.5,45.6],[-73.4,45.7]]},"properties":{"sigle":"ACSA"}}
]}`))

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := config.Datasets{Trees: config.Dataset{URL: "sources/trees.geojson"}}
	if _, err := NewLoader(dir, log).Load(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "inputs=1") || !strings.Contains(out, "features=3") {
		t.Errorf("log = %s", out)
	}
	if strings.Contains(out, "=-") {
		t.Errorf("negative count logged: %s", out)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/big" {
			io.WriteString(w, "01234567890")
			return
		}
		io.WriteString(w, "0123456789")
	}))
	defer srv.Close()

	s := NewSourceService(t.TempDir())
	s.maxBytes = 10

	if _, err := s.Fetch(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized err = %v, want ErrTooLarge", err)
	}
	data, err := s.Fetch(context.Background(), srv.URL+"/fits")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 10 {
		t.Errorf("read %d bytes", len(data))
	}
}
