// Package memory provides a process-local flow store.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/store"
)

// Store keeps serialized snapshots so callers never share graphs with it.
type Store struct {
	mu    sync.RWMutex
	flows map[string]graph.Flow
}

// New returns an empty store.
func New() *Store {
	return &Store{flows: make(map[string]graph.Flow)}
}

func (s *Store) Save(ctx context.Context, f *flow.Flow) error {
	if err := store.Check(f); err != nil {
		return err
	}
	snap := graph.FromFlow(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = snap
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*flow.Flow, error) {
	s.mu.RLock()
	snap, ok := s.flows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.NotFound(id)
	}
	return graph.ToFlow(snap)
}

func (s *Store) List(ctx context.Context, filter store.Filter) ([]store.Summary, error) {
	s.mu.RLock()
	var out []store.Summary
	for _, snap := range s.flows {
		if !filter.Matches(snap.Title, flow.Status(snap.Status)) {
			continue
		}
		out = append(out, store.Summary{
			ID:          snap.ID,
			Title:       snap.Title,
			Status:      flow.Status(snap.Status),
			Screens:     len(snap.Screens),
			Connections: len(snap.Connections),
			CreatedAt:   snap.CreatedAt,
		})
	}
	s.mu.RUnlock()

	store.SortNewestFirst(out)
	lo, hi := filter.Page(len(out))
	return slices.Clip(out[lo:hi]), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return store.NotFound(id)
	}
	delete(s.flows, id)
	return nil
}

func (s *Store) CountByTitle(ctx context.Context, title string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, snap := range s.flows {
		if snap.Title == title {
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
