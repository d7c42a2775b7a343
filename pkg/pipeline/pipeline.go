// Package pipeline runs flow builds end to end.
//
// A build turns a directory of recorded frames into a laid-out flow:
//
//  1. Predict: send the frames to the detection oracle (cached by content)
//  2. Build: deduplicate predictions into screens and record connections
//  3. Layout: place every screen on the grid (cached by adjacency)
//  4. Save: persist the flow with status success, or fail on error
//
// The same [Runner] also re-lays out, edits, imports and exports stored
// flows, so the CLI and any future worker share one code path.
//
// # Usage
//
//	runner := pipeline.NewRunner(st, client, nil, nil, nil, logger)
//	res, err := runner.Build(ctx, pipeline.Options{
//	    FramesDir: "recording/",
//	    Title:     "Checkout",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg, err := runner.Export(ctx, res.Flow.ID, pipeline.FormatSVG, nodelink.Options{})
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/flow/build"
	"github.com/screenflow/screenflow/pkg/oracle"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported export formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatYAML: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, yaml, dot, svg, png)", format)
	}
	return nil
}

// =============================================================================
// Options - Build Configuration
// =============================================================================

// Options configures a build.
type Options struct {
	// FramesDir holds the recording's frames.
	FramesDir string `validate:"required"`

	// FlowID selects a stored flow to extend. Empty creates a new flow.
	FlowID string `validate:"omitempty,uuid"`

	// Title and Description name a new flow. Title defaults to the base name
	// of FramesDir.
	Title       string
	Description string

	// Predictions, when non-nil, are used instead of calling the oracle.
	Predictions []flow.Prediction

	// Interval is the frame sampling interval reported to the oracle.
	Interval int `validate:"gte=0"`

	// MaxGap bounds the time between two detections that still counts as a
	// transition.
	MaxGap float64 `validate:"gte=0"`

	// Refresh bypasses the prediction cache.
	Refresh bool

	// AssetsDir, when set, receives a copy of every new screen's frame
	// named after the flow title and screen number.
	AssetsDir string

	Logger *log.Logger `validate:"-"`

	validated bool
}

var validate = validator.New()

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid build options")
	}
	if o.Title == "" {
		dir := filepath.Clean(o.FramesDir)
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		o.Title = filepath.Base(dir)
	}
	if err := errors.ValidateTitle(o.Title); err != nil {
		return err
	}
	if o.Interval == 0 {
		o.Interval = oracle.DefaultInterval
	}
	if o.MaxGap == 0 {
		o.MaxGap = build.DefaultMaxGap
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a build.
type Result struct {
	// Flow is the saved flow.
	Flow *flow.Flow

	// Build holds the per-prediction screens and connection counts of this
	// pass.
	Build build.Result

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains build statistics.
type Stats struct {
	Frames      int
	Predictions int
	Screens     int
	Connections int
	NewScreens  int
	PredictTime time.Duration
	BuildTime   time.Duration
	LayoutTime  time.Duration
}

// CacheInfo tracks cache hits per stage.
type CacheInfo struct {
	PredictionsHit bool
	LayoutHit      bool
}

// String summarizes the result for logs.
func (r *Result) String() string {
	return fmt.Sprintf("flow %s: %d screens, %d connections (%d new screens)",
		r.Flow.ID, r.Stats.Screens, r.Stats.Connections, r.Stats.NewScreens)
}
