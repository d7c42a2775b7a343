package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestPolicyDo(t *testing.T) {
	transient := &RetryableError{Err: errors.New("boom")}
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		attempts  int
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"SucceedsFirst", 3, nil, 1, nil},
		{"RetriesTransient", 3, []error{transient, transient}, 3, nil},
		{"GivesUp", 2, []error{transient, transient, transient}, 2, transient},
		{"PermanentStops", 3, []error{permanent}, 1, permanent},
		{"ZeroAttemptsRunsOnce", 0, []error{transient}, 1, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, retries := 0, 0
			p := Policy{
				Attempts: tt.attempts,
				Delay:    time.Millisecond,
				OnRetry:  func(int, error) { retries++ },
			}
			err := p.Do(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if retries != max(calls-1, 0) {
				t.Errorf("retries = %d, want %d", retries, calls-1)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("x")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   error
		retryable bool
	}{
		{http.StatusOK, nil, false},
		{http.StatusBadRequest, ErrStatus, false},
		{http.StatusNotFound, ErrStatus, false},
		{http.StatusTooManyRequests, ErrNetwork, true},
		{http.StatusBadGateway, ErrNetwork, true},
	}
	for _, tt := range tests {
		err := CheckStatus(tt.code)
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("CheckStatus(%d) = %v, want nil", tt.code, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("CheckStatus(%d) = %v, want %v", tt.code, err, tt.wantErr)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("CheckStatus(%d) retryable = %v, want %v", tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestNewClient(t *testing.T) {
	if c := NewClient(0); c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c := NewClient(time.Second); c.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", c.Timeout)
	}
}
