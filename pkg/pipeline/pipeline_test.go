package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenflow/screenflow/pkg/cache"
	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/observability"
	"github.com/screenflow/screenflow/pkg/render/nodelink"
	"github.com/screenflow/screenflow/pkg/store"
	"github.com/screenflow/screenflow/pkg/store/memory"
)

// writeFrames creates n distinct 8x4 PNG frames and returns their directory.
func writeFrames(t *testing.T, n int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "recording")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, 8, 4))
		img.Set(0, 0, color.RGBA{R: uint8(i * 40), A: 255})
		f, err := os.Create(filepath.Join(dir, "frame"+string(rune('a'+i))+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

type fakeOracle struct {
	preds    []flow.Prediction
	err      error
	calls    atomic.Int32
	interval atomic.Int32
}

func (o *fakeOracle) Predict(_ context.Context, frames [][]byte, interval int) ([]flow.Prediction, error) {
	o.calls.Add(1)
	o.interval.Store(int32(interval))
	return o.preds, o.err
}

func pos(x, y int) flow.Position { return flow.Position{X: x, Y: y} }

func screenAt(t *testing.T, f *flow.Flow, n int) flow.Position {
	t.Helper()
	s, ok := f.Graph.Screen(n)
	require.True(t, ok, "screen %d", n)
	require.True(t, s.Placed, "screen %d not placed", n)
	return s.Pos
}

func TestBuildReturnPathPromotes(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)

	res, err := r.Build(ctx, Options{
		FramesDir: writeFrames(t, 2),
		Title:     "Checkout",
		Predictions: []flow.Prediction{
			{Index: 0, TimeIn: 0, TimeOut: 5},
			{Index: 1, TimeIn: 6, TimeOut: 10},
			{Index: 0, TimeIn: 50, TimeOut: 55},
		},
	})
	require.NoError(t, err)

	f := res.Flow
	assert.Equal(t, flow.StatusSuccess, f.Status)
	assert.Equal(t, flow.Frame{Width: 8, Height: 4}, f.Frame)
	assert.Equal(t, 2, res.Stats.Screens)
	assert.Equal(t, []flow.Connection{{Out: 1, In: 2, Bidirectional: true}}, f.Graph.Connections())
	assert.Equal(t, 1, res.Build.Stats.Created)
	assert.Equal(t, 1, res.Build.Stats.Promoted)
	assert.Equal(t, pos(0, 0), screenAt(t, f, 1))
	assert.Equal(t, pos(1, 0), screenAt(t, f, 2))

	stored, err := r.Store.Load(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Graph.Connections(), stored.Graph.Connections())
	assert.Equal(t, flow.StatusSuccess, stored.Status)
}

func TestBuildGapSkipsConnection(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	res, err := r.Build(context.Background(), Options{
		FramesDir: writeFrames(t, 2),
		Predictions: []flow.Prediction{
			{Index: 0, TimeIn: 0, TimeOut: 5},
			{Index: 1, TimeIn: 200, TimeOut: 205},
		},
	})
	require.NoError(t, err)

	f := res.Flow
	assert.Equal(t, "recording", f.Title, "title defaults to the frames directory")
	assert.Equal(t, 2, f.Graph.ScreenCount())
	assert.Zero(t, f.Graph.ConnectionCount())
	assert.Equal(t, 1, res.Build.Stats.SkippedGap)
	assert.Equal(t, pos(0, 0), screenAt(t, f, 1))
	assert.Equal(t, pos(0, 1), screenAt(t, f, 2))
}

type countingHooks struct {
	observability.NoopBuildHooks
	layouts  atomic.Int32
	complete atomic.Int32
	lastErr  error
}

func (h *countingHooks) OnLayoutStart(context.Context, string, int) { h.layouts.Add(1) }
func (h *countingHooks) OnBuildComplete(_ context.Context, _ string, _, _ int, _ time.Duration, err error) {
	h.complete.Add(1)
	h.lastErr = err
}

func TestBuildEmptyPredictions(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetBuildHooks(hooks)
	t.Cleanup(observability.Reset)

	r := NewRunner(nil, nil, nil, nil, nil, nil)
	res, err := r.Build(context.Background(), Options{
		FramesDir:   writeFrames(t, 1),
		Predictions: []flow.Prediction{},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Flow.Graph.ScreenCount())
	assert.Equal(t, flow.StatusSuccess, res.Flow.Status)
	assert.Zero(t, hooks.layouts.Load(), "layout must be skipped")
	assert.Equal(t, int32(1), hooks.complete.Load())
}

func TestBuildUsesOracleAndCaches(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	o := &fakeOracle{preds: []flow.Prediction{
		{Index: 0, TimeIn: 0, TimeOut: 3},
		{Index: 1, TimeIn: 3, TimeOut: 6},
		{Index: 2, TimeIn: 6, TimeOut: 9},
	}}
	r := NewRunner(nil, o, c, nil, nil, nil)
	dir := writeFrames(t, 3)

	first, err := r.Build(ctx, Options{FramesDir: dir, Interval: 2})
	require.NoError(t, err)
	assert.False(t, first.CacheInfo.PredictionsHit)
	assert.False(t, first.CacheInfo.LayoutHit)
	assert.Equal(t, int32(2), o.interval.Load())

	second, err := r.Build(ctx, Options{FramesDir: dir, Interval: 2})
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.PredictionsHit)
	assert.True(t, second.CacheInfo.LayoutHit)
	assert.Equal(t, int32(1), o.calls.Load())
	assert.NotEqual(t, first.Flow.ID, second.Flow.ID)
	assert.Equal(t, first.Flow.Graph.Screens(), second.Flow.Graph.Screens())

	_, err = r.Build(ctx, Options{FramesDir: dir, Interval: 2, Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), o.calls.Load(), "refresh bypasses the prediction cache")

	_, err = r.Build(ctx, Options{FramesDir: dir, Interval: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(3), o.calls.Load(), "interval is part of the cache key")
}

// urlOracle is a fakeOracle reachable at a URL.
type urlOracle struct {
	*fakeOracle
	url string
}

func (o urlOracle) ServiceURL() string { return o.url }

func TestPredictionCacheSeparatesOracles(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	dir := writeFrames(t, 2)

	staging := urlOracle{&fakeOracle{preds: seq(2)}, "http://staging:8000"}
	prod := urlOracle{&fakeOracle{preds: seq(1)}, "http://prod:8000"}

	first, err := NewRunner(nil, staging, c, nil, nil, nil).Build(ctx, Options{FramesDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.Screens)

	second, err := NewRunner(nil, prod, c, nil, nil, nil).Build(ctx, Options{FramesDir: dir})
	require.NoError(t, err)
	assert.False(t, second.CacheInfo.PredictionsHit, "another oracle's answer was served from the cache")
	assert.Equal(t, int32(1), prod.calls.Load())
	assert.Equal(t, 1, second.Stats.Screens)

	third, err := NewRunner(nil, staging, c, nil, nil, nil).Build(ctx, Options{FramesDir: dir})
	require.NoError(t, err)
	assert.True(t, third.CacheInfo.PredictionsHit)
	assert.Equal(t, int32(1), staging.calls.Load())
}

func TestBuildOracleFailureMarksStoredFlow(t *testing.T) {
	ctx := context.Background()
	o := &fakeOracle{preds: []flow.Prediction{{Index: 0, TimeIn: 0, TimeOut: 1}}}
	r := NewRunner(nil, o, nil, nil, nil, nil)
	dir := writeFrames(t, 1)

	res, err := r.Build(ctx, Options{FramesDir: dir})
	require.NoError(t, err)

	o.preds, o.err = nil, errors.New(errors.ErrCodeOracleUnavailable, "down")
	_, err = r.Build(ctx, Options{FramesDir: dir, FlowID: res.Flow.ID})
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err), "err = %v", err)

	stored, err := r.Store.Load(ctx, res.Flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusFail, stored.Status)
	assert.Equal(t, 1, stored.Graph.ScreenCount(), "graph is kept")
}

func TestBuildOracleFailureNewFlow(t *testing.T) {
	ctx := context.Background()
	o := &fakeOracle{err: errors.New(errors.ErrCodeOracleUnavailable, "down")}
	r := NewRunner(nil, o, nil, nil, nil, nil)

	_, err := r.Build(ctx, Options{FramesDir: writeFrames(t, 1)})
	assert.True(t, errors.IsUnavailable(err))

	list, err := r.Store.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is stored when the flow never existed")
}

func TestBuildWithoutOracle(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	_, err := r.Build(context.Background(), Options{FramesDir: writeFrames(t, 1)})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "err = %v", err)
}

func TestBuildInvalidPredictionSavesFailedFlow(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	_, err := r.Build(ctx, Options{
		FramesDir:   writeFrames(t, 2),
		Predictions: []flow.Prediction{{Index: 5}},
	})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPrediction), "err = %v", err)

	list, err := r.Store.List(ctx, store.Filter{Status: flow.StatusFail})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Screens)
}

func TestRebuildReusesScreens(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	dir := writeFrames(t, 2)

	first, err := r.Build(ctx, Options{
		FramesDir: dir,
		Predictions: []flow.Prediction{
			{Index: 0, TimeIn: 0, TimeOut: 5},
			{Index: 1, TimeIn: 6, TimeOut: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []flow.Connection{{Out: 1, In: 2}}, first.Flow.Graph.Connections())

	second, err := r.Build(ctx, Options{
		FramesDir: dir,
		FlowID:    first.Flow.ID,
		Predictions: []flow.Prediction{
			{Index: 1, TimeIn: 0, TimeOut: 5},
			{Index: 0, TimeIn: 6, TimeOut: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Flow.ID, second.Flow.ID)
	assert.Zero(t, second.Stats.NewScreens)
	assert.Equal(t, 2, second.Stats.Screens)
	assert.Equal(t, []flow.Connection{{Out: 1, In: 2, Bidirectional: true}}, second.Flow.Graph.Connections())
}

func TestBuildUnknownFlow(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	_, err := r.Build(context.Background(), Options{
		FramesDir:   writeFrames(t, 1),
		FlowID:      "7f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b",
		Predictions: []flow.Prediction{},
	})
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound), "err = %v", err)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New(errors.ErrCodeFlowLocked, "busy")
}

func TestBuildLockedFlow(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, busyLocker{}, nil)
	_, err := r.Build(context.Background(), Options{
		FramesDir:   writeFrames(t, 1),
		Predictions: []flow.Prediction{},
	})
	assert.True(t, errors.Is(err, errors.ErrCodeFlowLocked), "err = %v", err)
}

func TestBuildWritesAssets(t *testing.T) {
	assets := t.TempDir()
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	_, err := r.Build(context.Background(), Options{
		FramesDir: writeFrames(t, 3),
		Title:     "Sign up",
		AssetsDir: assets,
		Predictions: []flow.Prediction{
			{Index: 2, TimeIn: 0, TimeOut: 1},
			{Index: 0, TimeIn: 1, TimeOut: 2},
			{Index: 2, TimeIn: 2, TimeOut: 3},
		},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(assets)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"Sign-up_01_01.png", "Sign-up_01_02.png"}, names)
}

// seq returns predictions visiting frames 0..n-1 in order, 1 time unit apart.
func seq(n int) []flow.Prediction {
	preds := make([]flow.Prediction, n)
	for i := range preds {
		preds[i] = flow.Prediction{Index: i, TimeIn: float64(2 * i), TimeOut: float64(2*i + 1)}
	}
	return preds
}

func TestRebuildKeepsFlowOrdinalForAssets(t *testing.T) {
	ctx := context.Background()
	assets := t.TempDir()
	r := NewRunner(nil, nil, nil, nil, nil, nil)

	a, err := r.Build(ctx, Options{FramesDir: writeFrames(t, 2), Title: "X", AssetsDir: assets, Predictions: seq(2)})
	require.NoError(t, err)
	b, err := r.Build(ctx, Options{FramesDir: writeFrames(t, 3), Title: "X", AssetsDir: assets, Predictions: seq(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Flow.Ordinal)
	assert.Equal(t, 2, b.Flow.Ordinal)

	bAsset := filepath.Join(assets, "X_02_03.png")
	require.NoError(t, os.WriteFile(bAsset, []byte("flow b"), 0644))

	// The rebuild sees a third frame that flow A has not seen yet.
	again, err := r.Build(ctx, Options{FramesDir: writeFrames(t, 3), FlowID: a.Flow.ID, AssetsDir: assets, Predictions: seq(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Stats.NewScreens)
	assert.Equal(t, 1, again.Flow.Ordinal)

	data, err := os.ReadFile(bAsset)
	require.NoError(t, err)
	assert.Equal(t, "flow b", string(data), "rebuild of flow A overwrote an asset of flow B")
	assert.FileExists(t, filepath.Join(assets, "X_01_03.png"))

	stored, err := r.Store.Load(ctx, a.Flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Ordinal)
}

func TestRebuildAssignsOrdinalToLegacyFlow(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)

	older := flow.New("X", "")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := flow.New("X", "")
	require.NoError(t, r.Store.Save(ctx, older))
	require.NoError(t, r.Store.Save(ctx, newer))

	res, err := r.Build(ctx, Options{FramesDir: writeFrames(t, 1), FlowID: older.ID, Predictions: seq(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Flow.Ordinal, "ordinal follows creation order")

	res, err = r.Build(ctx, Options{FramesDir: writeFrames(t, 1), FlowID: newer.ID, Predictions: seq(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Flow.Ordinal)
}

func buildTriangle(t *testing.T, r *Runner) *flow.Flow {
	t.Helper()
	res, err := r.Build(context.Background(), Options{
		FramesDir: writeFrames(t, 3),
		Predictions: []flow.Prediction{
			{Index: 0, TimeIn: 0, TimeOut: 1},
			{Index: 1, TimeIn: 1, TimeOut: 2},
			{Index: 0, TimeIn: 2, TimeOut: 3},
			{Index: 2, TimeIn: 3, TimeOut: 4},
		},
	})
	require.NoError(t, err)
	return res.Flow
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	f := buildTriangle(t, r)
	// 1 at (0,0), 2 at (1,0), 3 at (1,1)
	require.Equal(t, pos(1, 1), screenAt(t, f, 3))

	_, err := r.Move(ctx, f.ID, 3, pos(1, 0))
	assert.True(t, errors.Is(err, errors.ErrCodePositionTaken), "err = %v", err)

	_, err = r.Move(ctx, f.ID, 9, pos(4, 4))
	assert.True(t, errors.Is(err, errors.ErrCodeScreenNotFound), "err = %v", err)

	_, err = r.Move(ctx, f.ID, 3, pos(-1, 0))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)

	moved, err := r.Move(ctx, f.ID, 3, pos(2, 0))
	require.NoError(t, err)
	assert.Equal(t, pos(2, 0), screenAt(t, moved, 3))

	stored, err := r.Store.Load(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, pos(2, 0), screenAt(t, stored, 3))

	relaid, _, err := r.Relayout(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, pos(1, 1), screenAt(t, relaid, 3), "relayout discards manual moves")
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil, nil, nil)
	f := buildTriangle(t, r)

	data, err := r.Export(ctx, f.ID, FormatJSON, nodelink.Options{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source_anchor": "right"`)

	data, err = r.Export(ctx, f.ID, FormatYAML, nodelink.Options{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "bidirectional: true")

	data, err = r.Export(ctx, f.ID, FormatDOT, nodelink.Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph"), "got %q", data)
	assert.Contains(t, string(data), "dir=both")

	_, err = r.Export(ctx, f.ID, "pdf", nodelink.Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = r.Export(ctx, "7f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b", FormatJSON, nodelink.Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeFlowNotFound))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(memory.New(), nil, nil, nil, nil, nil)
	doc := `{
  "title": "imported",
  "status": "success",
  "screens": [{"number": 1}, {"number": 2}],
  "connections": [
    {"out": 1, "in": 2},
    {"out": 2, "in": 1},
    {"out": 1, "in": 2}
  ]
}`
	f, err := r.Import(ctx, strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.True(t, flow.ValidID(f.ID))
	assert.Equal(t, []flow.Connection{{Out: 1, In: 2, Bidirectional: true}}, f.Graph.Connections())

	n, err := r.Store.CountByTitle(ctx, "imported")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Import(ctx, strings.NewReader("{"), FormatJSON)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	assert.True(t, errors.Is(o.ValidateAndSetDefaults(), errors.ErrCodeInvalidInput))

	o = Options{FramesDir: "x", FlowID: "not-a-uuid"}
	assert.True(t, errors.Is(o.ValidateAndSetDefaults(), errors.ErrCodeInvalidInput))

	o = Options{FramesDir: "x", Title: "Sign\nup"}
	assert.True(t, errors.Is(o.ValidateAndSetDefaults(), errors.ErrCodeInvalidInput))

	o = Options{FramesDir: "/tmp/recordings/login/"}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, "login", o.Title)
	assert.Equal(t, 3, o.Interval)
	assert.Equal(t, 100.0, o.MaxGap)
	assert.NotNil(t, o.Logger)
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"yaml", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}
