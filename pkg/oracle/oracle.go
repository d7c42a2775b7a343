// Package oracle is the client of the screen detection service.
//
// The service receives every frame of a recording and answers with one
// prediction per detected screen visit: the index of the frame that shows
// the screen and the interval during which it was visible.
//
//	POST {base}/flow
//	{"encoded_images": ["<base64>", ...], "images_interval": 3}
//
//	200 [{"index": 0, "time_in": 0, "time_out": 3}, ...]
//
// Transport failures and 429/5xx answers are retried with backoff. When
// retries run out the call fails with ORACLE_UNAVAILABLE; any other non-200
// answer or an undecodable body fails with ORACLE_FAILED.
package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/httputil"
	"github.com/screenflow/screenflow/pkg/observability"
)

// DefaultInterval is the frame sampling interval, in seconds, reported to the
// service when none is configured.
const DefaultInterval = 3

// Endpoint is the path of the prediction call.
const Endpoint = "/flow"

// Predictor produces predictions for a sequence of frames sampled every
// interval seconds.
type Predictor interface {
	Predict(ctx context.Context, frames [][]byte, interval int) ([]flow.Prediction, error)
}

// Client talks to the detection service over HTTP.
type Client struct {
	BaseURL  string
	Interval int

	http   *http.Client
	policy httputil.Policy
	logger *log.Logger
}

// ServiceURL returns the base URL of the service.
func (c *Client) ServiceURL() string { return c.BaseURL }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = httputil.NewClient(d) }
}

// WithInterval sets the sampling interval sent when a call passes none.
func WithInterval(seconds int) Option {
	return func(c *Client) { c.Interval = seconds }
}

// WithPolicy sets the retry policy.
func WithPolicy(p httputil.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "oracle url")
	}
	c := &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Interval: DefaultInterval,
		http:     httputil.NewClient(0),
		policy:   httputil.DefaultPolicy,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Interval <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "images interval must be positive, got %d", c.Interval)
	}
	return c, nil
}

type request struct {
	EncodedImages  []string `json:"encoded_images"`
	ImagesInterval int      `json:"images_interval"`
}

// Predict sends frames to the service. An interval of zero uses the
// client's default. An empty frame list yields no predictions without a call.
func (c *Client) Predict(ctx context.Context, frames [][]byte, interval int) ([]flow.Prediction, error) {
	if len(frames) == 0 {
		return []flow.Prediction{}, nil
	}
	if interval <= 0 {
		interval = c.Interval
	}

	req := request{
		EncodedImages:  make([]string, len(frames)),
		ImagesInterval: interval,
	}
	for i, f := range frames {
		req.EncodedImages[i] = base64.StdEncoding.EncodeToString(f)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode oracle request")
	}

	policy := c.policy
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error) {
			c.logger.Warn("oracle call failed, retrying", "attempt", attempt, "err", err)
		}
	}

	var preds []flow.Prediction
	err = policy.Do(ctx, func() error {
		var callErr error
		preds, callErr = c.call(ctx, body)
		return callErr
	})
	if err != nil {
		return nil, classify(err)
	}
	c.logger.Debug("oracle answered", "frames", len(frames), "predictions", len(preds))
	return preds, nil
}

func (c *Client) call(ctx context.Context, body []byte) ([]flow.Prediction, error) {
	target := c.BaseURL + Endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", httputil.ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, err
	}

	var preds []flow.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&preds); err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleFailed, err, "decode oracle response")
	}
	if preds == nil {
		preds = []flow.Prediction{}
	}
	return preds, nil
}

// classify maps a final call error onto the oracle error codes.
func classify(err error) error {
	switch {
	case errors.GetCode(err) != "":
		return err
	case httputil.IsRetryable(err), isContextErr(err):
		return errors.Wrap(errors.ErrCodeOracleUnavailable, err, "oracle unavailable")
	default:
		return errors.Wrap(errors.ErrCodeOracleFailed, err, "oracle call failed")
	}
}

func isContextErr(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded
}

var _ Predictor = (*Client)(nil)
