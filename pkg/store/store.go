// Package store persists flows.
//
// # Backends
//
//   - memory: process-local, for tests and one-shot runs
//   - file: one JSON document per flow under ~/.config/screenflow/flows
//   - sqlite: relational tables with the connection pair invariant enforced
//     by a unique index
//   - mongo: one document per flow
//
// Every backend validates a flow's graph before writing it and returns a
// FLOW_NOT_FOUND coded error for unknown identifiers.
package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	// Save inserts or replaces a flow with all its screens and connections.
	Save(ctx context.Context, f *flow.Flow) error
	// Load returns a flow by ID.
	Load(ctx context.Context, id string) (*flow.Flow, error)
	// List returns flow summaries, newest first.
	List(ctx context.Context, filter Filter) ([]Summary, error)
	// Delete removes a flow with its screens and connections.
	Delete(ctx context.Context, id string) error
	// CountByTitle returns how many stored flows share a title.
	CountByTitle(ctx context.Context, title string) (int, error)
	Close() error
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Title  string
	Status flow.Status
	Limit  int
	Offset int
}

// Matches reports whether a flow with the given title and status passes the
// filter. Limit and Offset are not considered.
func (f Filter) Matches(title string, status flow.Status) bool {
	return (f.Title == "" || f.Title == title) && (f.Status == "" || f.Status == status)
}

// Page applies Offset and Limit to n items and returns the bounds to slice.
func (f Filter) Page(n int) (lo, hi int) {
	lo = min(max(f.Offset, 0), n)
	hi = n
	if f.Limit > 0 {
		hi = min(lo+f.Limit, n)
	}
	return lo, hi
}

// Summary is a list entry.
type Summary struct {
	ID          string
	Title       string
	Status      flow.Status
	Screens     int
	Connections int
	CreatedAt   time.Time
}

// Summarize builds the list entry of f.
func Summarize(f *flow.Flow) Summary {
	s := Summary{ID: f.ID, Title: f.Title, Status: f.Status, CreatedAt: f.CreatedAt}
	if f.Graph != nil {
		s.Screens = f.Graph.ScreenCount()
		s.Connections = f.Graph.ConnectionCount()
	}
	return s
}

// Check validates f before it is written.
func Check(f *flow.Flow) error {
	if f == nil || f.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "flow has no ID")
	}
	if !f.Status.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "flow %s: unknown status %q", f.ID, f.Status)
	}
	if f.Graph == nil {
		return errors.New(errors.ErrCodeInvalidInput, "flow %s has no graph", f.ID)
	}
	if err := f.Graph.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "flow %s", f.ID)
	}
	return nil
}

// NotFound returns the coded error for a missing flow.
func NotFound(id string) error {
	return errors.New(errors.ErrCodeFlowNotFound, "flow %s not found", id)
}

// SortNewestFirst orders summaries by creation time descending, then by ID.
func SortNewestFirst(s []Summary) {
	slices.SortFunc(s, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
