// Package file provides a flow store backed by one JSON document per flow.
// It is the default store of the command line tool.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/store"
)

// Store keeps flows as JSON files in a config directory.
type Store struct {
	mu      sync.RWMutex
	baseDir string
}

// New creates a file-based store.
// If baseDir is empty, defaults to ~/.config/screenflow/flows/
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create flow dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// DefaultDir returns ~/.config/screenflow/flows.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "screenflow", "flows"), nil
}

func (s *Store) flowPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *Store) Save(ctx context.Context, f *flow.Flow) error {
	if err := store.Check(f); err != nil {
		return err
	}
	if !flow.ValidID(f.ID) {
		return fmt.Errorf("flow id %q is not a valid file name", f.ID)
	}
	data, err := graph.MarshalFlow(f, graph.FormatJSON)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.flowPath(f.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write flow file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write flow file: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*flow.Flow, error) {
	if !flow.ValidID(id) {
		return nil, store.NotFound(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := graph.ReadFlowFile(s.flowPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.NotFound(id)
		}
		return nil, fmt.Errorf("read flow %s: %w", id, err)
	}
	return f, nil
}

func (s *Store) List(ctx context.Context, filter store.Filter) ([]store.Summary, error) {
	docs, err := s.scan()
	if err != nil {
		return nil, err
	}
	var out []store.Summary
	for _, d := range docs {
		if !filter.Matches(d.Title, flow.Status(d.Status)) {
			continue
		}
		out = append(out, store.Summary{
			ID:          d.ID,
			Title:       d.Title,
			Status:      flow.Status(d.Status),
			Screens:     len(d.Screens),
			Connections: len(d.Connections),
			CreatedAt:   d.CreatedAt,
		})
	}
	store.SortNewestFirst(out)
	lo, hi := filter.Page(len(out))
	return out[lo:hi], nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if !flow.ValidID(id) {
		return store.NotFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.flowPath(id)); err != nil {
		if os.IsNotExist(err) {
			return store.NotFound(id)
		}
		return fmt.Errorf("remove flow file: %w", err)
	}
	return nil
}

func (s *Store) CountByTitle(ctx context.Context, title string) (int, error) {
	docs, err := s.scan()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if d.Title == title {
			n++
		}
	}
	return n, nil
}

// scan decodes every flow document in the directory. Unreadable files are
// skipped.
func (s *Store) scan() ([]graph.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read flow dir: %w", err)
	}
	var docs []graph.Flow
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		d, err := graph.UnmarshalFlow(data)
		if err != nil {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Store) Close() error { return nil }

// Path returns the base directory for flow files.
func (s *Store) Path() string {
	return s.baseDir
}

var _ store.Store = (*Store)(nil)
