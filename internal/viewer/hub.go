package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/species"
)

// Hub owns the loaded datasets and the live sessions.
type Hub struct {
	sources  []*dataset.Source
	index    *species.Index
	defaults Defaults
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub builds the species index once from the unfiltered sources.
func NewHub(sources []*dataset.Source, d Defaults, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sources:  sources,
		index:    species.FromRegistry(dataset.NewRegistry(sources...)),
		defaults: d,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Index is the species catalog shared by all sessions.
func (h *Hub) Index() *species.Index { return h.index }

// Sources are the loaded datasets.
func (h *Hub) Sources() []*dataset.Source { return h.sources }

// Defaults are the initial settings of new sessions.
func (h *Hub) Defaults() Defaults { return h.defaults }

// Open starts a session and queues its initial sync.
func (h *Hub) Open(ctx context.Context) (*Session, error) {
	s := newSession(uuid.NewString(), h.sources, h.index, h.defaults, h.log)
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	if err := s.Sync(ctx); err != nil {
		h.Close(s.ID)
		return nil, err
	}
	h.log.Debug("session opened", "session", s.ID)
	return s, nil
}

// Get returns a live session.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNoSession)
	}
	return s, nil
}

// Close ends a session.
func (h *Hub) Close(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		s.Close()
		h.log.Debug("session closed", "session", id)
	}
}

// Len is the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll ends every session.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
