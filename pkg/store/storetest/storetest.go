// Package storetest provides a conformance suite run against every store
// backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/store"
)

// NewFlow returns a laid-out flow with three screens and two connections,
// one of them bidirectional.
func NewFlow(title string) *flow.Flow {
	f := flow.New(title, "a flow")
	f.Status = flow.StatusSuccess
	f.Ordinal = 2
	f.Frame = flow.Frame{Width: 320, Height: 180}
	f.CreatedAt = f.CreatedAt.Truncate(time.Millisecond)
	g := f.Graph
	g.AddScreen("a.png")
	g.AddScreen("b.png")
	g.AddScreen("c.png")
	g.Connect(1, 2)
	g.Connect(2, 1)
	g.Connect(1, 3)
	g.Place(1, flow.Position{X: 0, Y: 0})
	g.Place(2, flow.Position{X: 1, Y: 0})
	g.Place(3, flow.Position{X: 1, Y: 1})
	return f
}

// Run exercises s. The store must start empty.
func Run(t *testing.T, s store.Store) {
	t.Run("SaveLoad", func(t *testing.T) { testSaveLoad(t, s) })
	t.Run("SaveReplaces", func(t *testing.T) { testSaveReplaces(t, s) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, s) })
	t.Run("RejectsInvalid", func(t *testing.T) { testRejectsInvalid(t, s) })
	t.Run("ListAndCount", func(t *testing.T) { testListAndCount(t, s) })
}

func testSaveLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	orig := NewFlow("save-load")
	require.NoError(t, s.Save(ctx, orig))

	got, err := s.Load(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, orig.Description, got.Description)
	assert.Equal(t, orig.Ordinal, got.Ordinal)
	assert.Equal(t, orig.Status, got.Status)
	assert.Equal(t, orig.Frame, got.Frame)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt), "CreatedAt %v != %v", got.CreatedAt, orig.CreatedAt)

	assert.Equal(t, orig.Graph.Connections(), got.Graph.Connections())
	require.Equal(t, orig.Graph.ScreenCount(), got.Graph.ScreenCount())
	for _, want := range orig.Graph.Screens() {
		sc, ok := got.Graph.Screen(want.Number)
		require.True(t, ok)
		assert.Equal(t, *want, *sc)
	}

	require.NoError(t, s.Delete(ctx, orig.ID))
	_, err = s.Load(ctx, orig.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound), "err = %v", err)
}

func testSaveReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFlow("replace")
	require.NoError(t, s.Save(ctx, f))

	f.Graph.AddScreen("d.png")
	f.Graph.Connect(3, 4)
	f.Status = flow.StatusFail
	require.NoError(t, s.Save(ctx, f))

	got, err := s.Load(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Graph.ScreenCount())
	assert.Equal(t, 3, got.Graph.ConnectionCount())
	assert.Equal(t, flow.StatusFail, got.Status)

	require.NoError(t, s.Delete(ctx, f.ID))
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.Load(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound), "Load err = %v", err)
	err = s.Delete(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound), "Delete err = %v", err)
}

func testRejectsInvalid(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFlow("invalid")
	f.Graph.Place(3, flow.Position{X: 0, Y: 0}) // collides with screen 1
	err := s.Save(ctx, f)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
	_, err = s.Load(ctx, f.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound), "invalid flow must not be stored: %v", err)
}

func testListAndCount(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i, title := range []string{"login", "login", "checkout"} {
		f := NewFlow(title)
		f.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 2 {
			f.Status = flow.StatusFail
		}
		require.NoError(t, s.Save(ctx, f))
		ids = append(ids, f.ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			s.Delete(context.Background(), id)
		}
	})

	n, err := s.CountByTitle(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountByTitle(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := s.List(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, 3, all[0].Screens)
	assert.Equal(t, 2, all[0].Connections)

	logins, err := s.List(ctx, store.Filter{Title: "login"})
	require.NoError(t, err)
	assert.Len(t, logins, 2)

	failed, err := s.List(ctx, store.Filter{Status: flow.StatusFail})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "checkout", failed[0].Title)

	page, err := s.List(ctx, store.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}
