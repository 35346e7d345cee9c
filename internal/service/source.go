package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxSourceBytes caps a single GeoJSON download.
const maxSourceBytes = 256 << 20

// ErrTooLarge is returned for downloads over the size cap.
var ErrTooLarge = errors.New("source too large")

// SourceService reads GeoJSON sources from disk or over HTTP.
type SourceService struct {
	dataDir  string
	client   *http.Client
	maxBytes int64
}

// NewSourceService creates a source service rooted at dataDir.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		dataDir:  dataDir,
		client:   &http.Client{Timeout: 60 * time.Second},
		maxBytes: maxSourceBytes,
	}
}

// Remote reports whether ref is fetched over HTTP.
func Remote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Fetch returns the raw bytes behind ref: an http(s) URL, or a path
// relative to the data directory.
func (s *SourceService) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if Remote(ref) {
		return s.fetchRemote(ctx, ref)
	}
	path, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *SourceService) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("GET %s: %w (over %d bytes)", url, ErrTooLarge, s.maxBytes)
	}
	return data, nil
}

// Resolve maps a relative reference to a path inside the data directory.
func (s *SourceService) Resolve(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	path := filepath.Join(s.dataDir, ref)
	rel, err := filepath.Rel(s.dataDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source %q escapes the data directory", ref)
	}
	return path, nil
}

// DataDir returns the root directory for relative references.
func (s *SourceService) DataDir() string {
	return s.dataDir
}
