package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// captureOutput redirects command and spinner output for the test.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = new(bytes.Buffer), new(bytes.Buffer)
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })
	return out, errOut
}

func TestSpinnerDrawsMessage(t *testing.T) {
	_, errOut := captureOutput(t)

	s := newSpinner("Building flow")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(errOut.String(), "Building flow") {
		t.Errorf("spinner output %q should contain message", errOut.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerUpdate(t *testing.T) {
	_, errOut := captureOutput(t)

	s := newSpinner("Predicting")
	s.Start()
	s.Update("Laying out")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(errOut.String(), "Laying out") {
		t.Errorf("spinner output %q should contain updated message", errOut.String())
	}
}

func TestSpinnerWithContext(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Waiting")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	captureOutput(t)
	s := newSpinner("Stopping")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithResult(t *testing.T) {
	out, _ := captureOutput(t)

	s := newSpinner("Working")
	s.Start()
	s.StopWithSuccess("Built flow")
	e := newSpinner("Working")
	e.Start()
	e.StopWithError("Oracle unavailable")

	if !strings.Contains(out.String(), "Built flow") || !strings.Contains(out.String(), "Oracle unavailable") {
		t.Errorf("output %q should contain both results", out.String())
	}
}
