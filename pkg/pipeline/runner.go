package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/screenflow/screenflow/pkg/cache"
	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/flow/build"
	"github.com/screenflow/screenflow/pkg/frames"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/lock"
	"github.com/screenflow/screenflow/pkg/observability"
	"github.com/screenflow/screenflow/pkg/oracle"
	"github.com/screenflow/screenflow/pkg/store"
	"github.com/screenflow/screenflow/pkg/store/memory"
)

// Runner executes builds and edits against a store, with caching and
// per-flow locking.
//
// The Runner holds no per-build state. Multiple goroutines can safely use
// the same Runner; builds of the same flow are serialized by the Locker.
type Runner struct {
	Store  store.Store
	Oracle oracle.Predictor
	Cache  cache.Cache
	Keyer  cache.Keyer
	Locker lock.Locker
	Logger *log.Logger
}

// NewRunner creates a runner. A nil store is replaced by an in-memory store,
// a nil cache by a NullCache, a nil keyer by a DefaultKeyer and a nil locker
// by an in-process Local locker. The oracle may be nil when every build
// supplies its own predictions.
func NewRunner(st store.Store, o oracle.Predictor, c cache.Cache, keyer cache.Keyer, locker lock.Locker, logger *log.Logger) *Runner {
	if st == nil {
		st = memory.New()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Store:  st,
		Oracle: o,
		Cache:  c,
		Keyer:  keyer,
		Locker: locker,
		Logger: logger,
	}
}

// Build runs predict → build → layout → save.
//
// Predictions are obtained before the flow is locked. If the oracle fails
// while extending a stored flow, that flow is saved with status fail. Any
// later failure saves the flow with status fail as well. An empty
// prediction list yields a flow without screens and skips the layout.
func (r *Runner) Build(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	set, err := frames.LoadDir(opts.FramesDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load frames")
	}
	res := &Result{}
	res.Stats.Frames = set.Len()

	predictStart := time.Now()
	preds, hit, err := r.predict(ctx, set, opts)
	res.Stats.PredictTime = time.Since(predictStart)
	res.CacheInfo.PredictionsHit = hit
	if err != nil {
		if opts.FlowID != "" {
			r.markFailed(ctx, opts.FlowID, err)
		}
		return nil, err
	}
	res.Stats.Predictions = len(preds)
	logger.Info("received predictions",
		"predictions", len(preds),
		"cached", hit,
		"duration", res.Stats.PredictTime)

	f, err := r.prepare(opts, set)
	if err != nil {
		return nil, err
	}
	unlock, err := r.Locker.Acquire(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if opts.FlowID != "" {
		if f, err = r.Store.Load(ctx, opts.FlowID); err != nil {
			return nil, err
		}
	}
	if f.Ordinal == 0 {
		if f.Ordinal, err = r.titleOrdinal(ctx, f); err != nil {
			return nil, err
		}
	}

	hooks := observability.Build()
	hooks.OnBuildStart(ctx, f.ID, len(preds))
	buildStart := time.Now()

	f.Status = flow.StatusPending
	br, err := build.Build(f.Graph, preds, set, build.Options{MaxGap: opts.MaxGap})
	res.Stats.BuildTime = time.Since(buildStart)
	if err != nil {
		return nil, r.fail(ctx, f, buildStart, err)
	}
	res.Build = br
	logger.Info("assembled graph",
		"screens", f.Graph.ScreenCount(),
		"new_screens", br.NewScreens,
		"connections", f.Graph.ConnectionCount(),
		"skipped_gap", br.Stats.SkippedGap,
		"duration", res.Stats.BuildTime)

	if f.Graph.ScreenCount() > 0 {
		layoutStart := time.Now()
		layoutHit, err := r.layoutFlow(ctx, f)
		res.Stats.LayoutTime = time.Since(layoutStart)
		if err != nil {
			return nil, r.fail(ctx, f, buildStart, err)
		}
		res.CacheInfo.LayoutHit = layoutHit
		logger.Info("computed layout", "cached", layoutHit, "duration", res.Stats.LayoutTime)
	}

	if opts.AssetsDir != "" {
		if err := r.writeAssets(f, set, br, opts.AssetsDir); err != nil {
			return nil, r.fail(ctx, f, buildStart, err)
		}
	}

	f.Status = flow.StatusSuccess
	if err := r.Store.Save(ctx, f); err != nil {
		hooks.OnBuildComplete(ctx, f.ID, f.Graph.ScreenCount(), f.Graph.ConnectionCount(), time.Since(buildStart), err)
		return nil, fmt.Errorf("save flow: %w", err)
	}
	hooks.OnBuildComplete(ctx, f.ID, f.Graph.ScreenCount(), f.Graph.ConnectionCount(), time.Since(buildStart), nil)

	res.Flow = f
	res.Stats.Screens = f.Graph.ScreenCount()
	res.Stats.Connections = f.Graph.ConnectionCount()
	res.Stats.NewScreens = br.NewScreens
	return res, nil
}

// prepare returns a new flow for opts, or a placeholder carrying the ID of
// the stored flow to extend.
func (r *Runner) prepare(opts Options, set frames.Set) (*flow.Flow, error) {
	if opts.FlowID != "" {
		return &flow.Flow{ID: opts.FlowID}, nil
	}
	f := flow.New(opts.Title, opts.Description)
	f.Frame = frames.FrameSize(set)
	return f, nil
}

// fail records err on f, saves it with status fail and returns err.
func (r *Runner) fail(ctx context.Context, f *flow.Flow, start time.Time, err error) error {
	f.Status = flow.StatusFail
	if saveErr := r.Store.Save(ctx, f); saveErr != nil {
		r.Logger.Warn("could not save failed flow", "flow", f.ID, "err", saveErr)
	}
	observability.Build().OnBuildComplete(ctx, f.ID, f.Graph.ScreenCount(), f.Graph.ConnectionCount(), time.Since(start), err)
	return err
}

// markFailed sets the status of a stored flow to fail after a failure that
// happened before the flow was loaded.
func (r *Runner) markFailed(ctx context.Context, id string, cause error) {
	unlock, err := r.Locker.Acquire(ctx, id)
	if err != nil {
		r.Logger.Warn("could not lock flow to record failure", "flow", id, "err", err)
		return
	}
	defer unlock()

	f, err := r.Store.Load(ctx, id)
	if err != nil {
		r.Logger.Warn("could not load flow to record failure", "flow", id, "err", err)
		return
	}
	f.Status = flow.StatusFail
	if err := r.Store.Save(ctx, f); err != nil {
		r.Logger.Warn("could not save failed flow", "flow", id, "err", err)
		return
	}
	r.Logger.Debug("marked flow failed", "flow", id, "cause", cause)
}

// titleOrdinal returns the ordinal of f among the flows titled like it. A flow
// not yet stored comes after all of them. A stored flow saved before
// ordinals existed is placed by creation time.
func (r *Runner) titleOrdinal(ctx context.Context, f *flow.Flow) (int, error) {
	same, err := r.Store.List(ctx, store.Filter{Title: f.Title})
	if err != nil {
		return 0, fmt.Errorf("list flows titled %q: %w", f.Title, err)
	}
	for i, s := range same {
		if s.ID == f.ID {
			// same is newest first
			return len(same) - i, nil
		}
	}
	n, err := r.Store.CountByTitle(ctx, f.Title)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// writeAssets copies the frame of every screen created in this pass into
// dir, named {title}_{ordinal}_{screenNum}.{ext}.
func (r *Runner) writeAssets(f *flow.Flow, set frames.Set, br build.Result, dir string) error {
	if br.NewScreens == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}

	first := f.Graph.ScreenCount() - br.NewScreens + 1
	written := make(map[int]bool, br.NewScreens)
	for _, p := range br.Pairs {
		if p.Screen < first || written[p.Screen] {
			continue
		}
		data, err := set.Frame(p.Prediction.Index)
		if err != nil {
			return err
		}
		ext := filepath.Ext(string(set.Ref(p.Prediction.Index)))
		name := frames.ScreenName(f.Title, f.Ordinal, p.Screen, ext)
		if err := errors.ValidateFileName(name); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("write asset: %w", err)
		}
		written[p.Screen] = true
	}
	return nil
}

// Relayout recomputes the positions of a stored flow from its connections,
// discarding manual moves.
func (r *Runner) Relayout(ctx context.Context, id string) (*flow.Flow, bool, error) {
	unlock, err := r.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	f, err := r.Store.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	hit, err := r.layoutFlow(ctx, f)
	if err != nil {
		return nil, false, err
	}
	if err := r.Store.Save(ctx, f); err != nil {
		return nil, false, fmt.Errorf("save flow: %w", err)
	}
	return f, hit, nil
}

// Move places one screen of a stored flow at pos. The move is refused with
// POSITION_TAKEN when another screen holds pos.
func (r *Runner) Move(ctx context.Context, id string, screen int, pos flow.Position) (*flow.Flow, error) {
	if pos.X < 0 || pos.Y < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "position (%d,%d) must not be negative", pos.X, pos.Y)
	}
	unlock, err := r.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := r.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Graph.MoveScreen(screen, pos); err != nil {
		switch {
		case stderrors.Is(err, flow.ErrPositionTaken):
			return nil, errors.Wrap(errors.ErrCodePositionTaken, err, "move screen %d", screen)
		case stderrors.Is(err, flow.ErrUnknownScreen):
			return nil, errors.Wrap(errors.ErrCodeScreenNotFound, err, "move screen %d", screen)
		default:
			return nil, err
		}
	}
	if err := r.Store.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("save flow: %w", err)
	}
	r.Logger.Debug("moved screen", "flow", id, "screen", screen, "x", pos.X, "y", pos.Y)
	return f, nil
}

// Import reads a flow document and stores it. Connections are merged by
// unordered pair on the way in. A document without an ID gets a new one;
// a document whose ID is taken replaces the stored flow.
func (r *Runner) Import(ctx context.Context, rd io.Reader, format string) (*flow.Flow, error) {
	f, err := graph.ReadFlow(rd, format)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read flow document")
	}
	if f.ID == "" {
		f.ID = flow.New("", "").ID
	}
	if !flow.ValidID(f.ID) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "flow id %q is not a UUID", f.ID)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	unlock, err := r.Locker.Acquire(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if err := r.Store.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the store and the cache.
func (r *Runner) Close() error {
	var errs []error
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	return stderrors.Join(errs...)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
