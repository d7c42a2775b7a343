// Package httputil provides HTTP utilities for outbound service clients.
//
// # Overview
//
// This package provides infrastructure shared by clients of remote services
// such as the inference oracle:
//
//   - [NewClient]: An *http.Client with a bounded timeout
//   - [CheckStatus]: Status code classification into permanent and transient
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Retry] re-runs an operation only when it fails with a [RetryableError].
// Transient failures are:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// The delay doubles after each failed attempt:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return call(ctx)
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Request timeout: 30 seconds
//   - Max attempts: 3
//   - Base backoff: 1 second
package httputil
