package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/pmtiles"
)

// TileService inspects PMTiles archives.
type TileService struct {
	tilesDir string
}

// NewTileService creates a new tile service.
func NewTileService(dataDir string) *TileService {
	return &TileService{
		tilesDir: filepath.Join(dataDir, "tiles"),
	}
}

// List returns all PMTiles archives with their header summary.
func (s *TileService) List() ([]TileFile, error) {
	entries, err := os.ReadDir(s.tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TileFile{}, nil
		}
		return nil, err
	}

	files := []TileFile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pmtiles" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		h, err := pmtiles.ReadFile(filepath.Join(s.tilesDir, entry.Name()))
		if err != nil {
			continue
		}
		files = append(files, TileFile{
			Name:    entry.Name(),
			Size:    formatSize(info.Size()),
			MinZoom: int(h.MinZoom),
			MaxZoom: int(h.MaxZoom),
			Bounds:  BoundSlice(h.Bounds()),
		})
	}
	return files, nil
}

// Bounds reads the extent from the header of the archive at path.
func (s *TileService) Bounds(path string) (orb.Bound, error) {
	h, err := pmtiles.ReadFile(path)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("inspecting %s: %w", filepath.Base(path), err)
	}
	return h.Bounds(), nil
}

// TilesDir returns the path to the tiles directory.
func (s *TileService) TilesDir() string {
	return s.tilesDir
}

// BoundSlice flattens b to [minLon, minLat, maxLon, maxLat].
func BoundSlice(b orb.Bound) []float64 {
	return []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
