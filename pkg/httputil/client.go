package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request made through [NewClient].
const DefaultTimeout = 30 * time.Second

var (
	// ErrNetwork is returned for transport failures and 5xx responses.
	ErrNetwork = errors.New("network error")

	// ErrStatus is returned for non-success responses that retrying will not fix.
	ErrStatus = errors.New("unexpected status")
)

// NewClient creates an HTTP client with the given timeout, or
// DefaultTimeout when timeout is zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// CheckStatus classifies a response status code. 200 is success; 429 and 5xx
// are retryable [ErrNetwork] failures; anything else is a permanent
// [ErrStatus].
func CheckStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: %d", ErrStatus, code)
	}
}
