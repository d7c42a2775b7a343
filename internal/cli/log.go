// Package cli implements the screenflow command-line interface.
//
// The commands drive the build pipeline against the configured flow store:
// building flows from recordings, re-running layout, moving screens,
// rendering diagrams and browsing stored flows. Settings come from the
// config file selected with --config and SCREENFLOW_* environment
// variables.
//
// # Commands
//
// The main commands are:
//   - build: Detect screens in a frames directory and merge them into a flow
//   - layout: Recompute grid positions of a stored flow
//   - move: Place one screen on a grid cell by hand
//   - render: Export a flow as JSON, YAML, DOT, SVG or PNG
//   - show, view: Inspect a flow as a table or in an interactive grid
//   - flows: List and delete stored flows
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Pipeline
// stages report through observability hooks backed by the CLI logger.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Built flow (1.234s)".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(fmt.Sprintf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond)), keyvals...)
}
