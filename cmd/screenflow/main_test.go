package main

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/screenflow/screenflow/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", errors.New(errors.ErrCodeInvalidInput, "x"), exitInvalid},
		{"invalid config", errors.New(errors.ErrCodeInvalidConfig, "x"), exitInvalid},
		{"oracle down", errors.Wrap(errors.ErrCodeOracleUnavailable, stderrors.New("refused"), "predict"), exitUnavailable},
		{"oracle down, wrapped", fmt.Errorf("build: %w", errors.New(errors.ErrCodeOracleUnavailable, "x")), exitUnavailable},
		{"oracle failed", errors.New(errors.ErrCodeOracleFailed, "x"), 1},
		{"plain", stderrors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
