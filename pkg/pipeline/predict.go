package pipeline

import (
	"context"

	"github.com/screenflow/screenflow/pkg/cache"
	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/frames"
)

// oracleURL names the service behind r.Oracle, so answers of different
// services never share a cache entry. Predictors without a URL share "".
func (r *Runner) oracleURL() string {
	if u, ok := r.Oracle.(interface{ ServiceURL() string }); ok {
		return u.ServiceURL()
	}
	return ""
}

// predict returns the predictions for set, from opts, the cache or the
// oracle in that order. Oracle answers are cached by service URL, frame
// content and interval.
func (r *Runner) predict(ctx context.Context, set frames.Set, opts Options) ([]flow.Prediction, bool, error) {
	if opts.Predictions != nil {
		return opts.Predictions, false, nil
	}
	if r.Oracle == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidConfig, "no oracle configured and no predictions supplied")
	}

	digest, err := set.Digest()
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "hash frames")
	}
	key := r.Keyer.PredictionKey(r.oracleURL(), digest, opts.Interval)

	if !opts.Refresh {
		var cached []flow.Prediction
		hit, err := cache.GetJSON(ctx, r.Cache, cache.KeyTypePredictions, key, &cached)
		if err != nil {
			opts.Logger.Debug("prediction cache unavailable", "err", err)
		}
		if hit {
			return cached, true, nil
		}
	}

	images := make([][]byte, set.Len())
	for i := range images {
		if images[i], err = set.Frame(i); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read frame %d", i)
		}
	}
	preds, err := r.Oracle.Predict(ctx, images, opts.Interval)
	if err != nil {
		return nil, false, err
	}

	if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypePredictions, key, preds, cache.PredictionTTL); err != nil {
		opts.Logger.Debug("could not cache predictions", "err", err)
	}
	return preds, false, nil
}
