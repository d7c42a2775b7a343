package build

import (
	"math"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
)

// Options configures a build.
type Options struct {
	// MaxGap defaults to DefaultMaxGap when zero.
	MaxGap float64
}

// Result summarizes a build pass.
type Result struct {
	Pairs      []Pair
	NewScreens int
	Stats      Stats
}

// ValidatePredictions checks that every prediction addresses one of the n
// supplied frames and carries finite times.
func ValidatePredictions(preds []flow.Prediction, n int) error {
	for i, p := range preds {
		if p.Index < 0 || p.Index >= n {
			return errors.New(errors.ErrCodeInvalidPrediction,
				"prediction %d: index %d out of range [0,%d)", i, p.Index, n)
		}
		if math.IsNaN(p.TimeIn) || math.IsNaN(p.TimeOut) || math.IsInf(p.TimeIn, 0) || math.IsInf(p.TimeOut, 0) {
			return errors.New(errors.ErrCodeInvalidPrediction, "prediction %d: non-finite time", i)
		}
	}
	return nil
}

// Build validates preds, resolves them to screens of g and records the
// connections between consecutive screens. An empty prediction list leaves g
// untouched.
func Build(g *flow.Graph, preds []flow.Prediction, images Images, opts Options) (Result, error) {
	if len(preds) == 0 {
		return Result{}, nil
	}
	if err := ValidatePredictions(preds, images.Len()); err != nil {
		return Result{}, err
	}
	if opts.MaxGap == 0 {
		opts.MaxGap = DefaultMaxGap
	}

	before := g.ScreenCount()
	pairs := Deduplicate(g, preds, images)
	st, err := Resolver{MaxGap: opts.MaxGap}.Resolve(g, pairs)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "resolve connections")
	}
	return Result{Pairs: pairs, NewScreens: g.ScreenCount() - before, Stats: st}, nil
}
