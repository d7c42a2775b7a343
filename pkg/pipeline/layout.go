package pipeline

import (
	"context"
	"time"

	"github.com/screenflow/screenflow/pkg/cache"
	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/flow/layout"
	"github.com/screenflow/screenflow/pkg/observability"
)

// layoutFlow lays out f with layout hooks around it.
func (r *Runner) layoutFlow(ctx context.Context, f *flow.Flow) (bool, error) {
	hooks := observability.Build()
	hooks.OnLayoutStart(ctx, f.ID, f.Graph.ScreenCount())
	start := time.Now()
	hit, err := r.GenerateLayout(ctx, f.Graph)
	hooks.OnLayoutComplete(ctx, f.ID, time.Since(start), err)
	return hit, err
}

// GenerateLayout places every screen of g, reusing a cached layout of an
// identical adjacency map when one exists. It reports whether the cache was
// hit.
func (r *Runner) GenerateLayout(ctx context.Context, g *flow.Graph) (bool, error) {
	adj := g.Adjacency()
	key := r.Keyer.LayoutKey(cache.AdjacencyHash(adj))

	var placements []layout.Placement
	hit, err := cache.GetJSON(ctx, r.Cache, cache.KeyTypeLayout, key, &placements)
	if err != nil {
		r.Logger.Debug("layout cache unavailable", "err", err)
	}
	if hit && len(placements) == len(adj) {
		g.ResetPositions()
		if err := layout.Apply(g, layout.Result{Placements: placements}); err == nil {
			return true, nil
		}
		// stale entry, recompute below
	}

	res, err := layout.Compute(adj)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "compute layout")
	}
	g.ResetPositions()
	if err := layout.Apply(g, res); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "apply layout")
	}

	if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypeLayout, key, res.Placements, cache.LayoutTTL); err != nil {
		r.Logger.Debug("could not cache layout", "err", err)
	}
	return false, nil
}
