package dataset

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-trees/internal/feature"
)

// Registry is one session's view of the datasets: the shared sources and
// the currently active filtered collection of each Inline point dataset.
// It is not safe for concurrent use; a session mutates it from a single
// goroutine.
type Registry struct {
	sources map[ID]*Source
	active  map[ID]feature.Collection
}

// NewRegistry creates a registry over the given sources. A later source
// with the same id replaces an earlier one.
func NewRegistry(sources ...*Source) *Registry {
	r := &Registry{
		sources: make(map[ID]*Source, len(sources)),
		active:  make(map[ID]feature.Collection, len(sources)),
	}
	for _, s := range sources {
		if s == nil {
			continue
		}
		r.sources[s.ID] = s
		if s.Backend == Inline && s.areas == nil {
			r.active[s.ID] = s.points
		}
	}
	return r
}

// Source returns the dataset with the given id.
func (r *Registry) Source(id ID) (*Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknown)
	}
	return s, nil
}

// Backend returns the backend of a dataset.
func (r *Registry) Backend(id ID) (Backend, error) {
	s, err := r.Source(id)
	if err != nil {
		return 0, err
	}
	return s.Backend, nil
}

// GetUnfiltered returns the full collection of an Inline point dataset.
func (r *Registry) GetUnfiltered(id ID) (feature.Collection, error) {
	s, err := r.Source(id)
	if err != nil {
		return nil, err
	}
	return s.Points()
}

// GetActiveView returns the currently displayed collection.
func (r *Registry) GetActiveView(id ID) (feature.Collection, error) {
	s, err := r.Source(id)
	if err != nil {
		return nil, err
	}
	if s.Backend == Tiled {
		return nil, fmt.Errorf("%s: %w", id, ErrUnsupported)
	}
	return r.active[id], nil
}

// SetActiveView stores the filtered subset of an Inline dataset.
func (r *Registry) SetActiveView(id ID, c feature.Collection) error {
	s, err := r.Source(id)
	if err != nil {
		return err
	}
	if s.Backend == Tiled {
		return fmt.Errorf("%s: %w", id, ErrUnsupported)
	}
	r.active[id] = c
	return nil
}

// Bounds returns the union of all known dataset extents.
func (r *Registry) Bounds() (orb.Bound, bool) {
	var out orb.Bound
	found := false
	for _, id := range []ID{Trees, Fellings, Neighbourhoods} {
		s, ok := r.sources[id]
		if !ok {
			continue
		}
		b, ok := s.Bounds()
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}
