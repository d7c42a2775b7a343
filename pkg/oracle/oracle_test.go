package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/httputil"
)

var fastPolicy = httputil.Policy{Attempts: 3, Delay: time.Millisecond}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New(url, append([]Option{WithPolicy(fastPolicy)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestPredict(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/flow", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"index":0,"time_in":0,"time_out":3},{"index":1,"time_in":3,"time_out":6}]`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", WithInterval(5))
	preds, err := c.Predict(context.Background(), [][]byte{[]byte("one"), []byte("two")}, 0)
	require.NoError(t, err)

	assert.Equal(t, []flow.Prediction{
		{Index: 0, TimeIn: 0, TimeOut: 3},
		{Index: 1, TimeIn: 3, TimeOut: 6},
	}, preds)
	assert.Equal(t, 5, got.ImagesInterval)
	require.Len(t, got.EncodedImages, 2)
	raw, err := base64.StdEncoding.DecodeString(got.EncodedImages[1])
	require.NoError(t, err)
	assert.Equal(t, "two", string(raw))

	_, err = c.Predict(context.Background(), [][]byte{[]byte("one")}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ImagesInterval, "explicit interval wins")
}

func TestPredictNoFrames(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	preds, err := newClient(t, srv.URL).Predict(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, preds)
	assert.Zero(t, calls.Load())
}

func TestPredictRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	preds, err := newClient(t, srv.URL).Predict(context.Background(), [][]byte{{1}}, 0)
	require.NoError(t, err)
	assert.Empty(t, preds)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    errors.Code
		attempt int32
	}{
		{"exhausted retries", http.StatusServiceUnavailable, "", errors.ErrCodeOracleUnavailable, 3},
		{"rejected request", http.StatusBadRequest, "bad", errors.ErrCodeOracleFailed, 1},
		{"garbage body", http.StatusOK, "not json", errors.ErrCodeOracleFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Predict(context.Background(), [][]byte{{1}}, 0)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetCode(err), "err = %v", err)
			assert.Equal(t, tt.attempt, calls.Load())
		})
	}
}

func TestPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).Predict(context.Background(), [][]byte{{1}}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err), "err = %v", err)
}

func TestPredictCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, srv.URL).Predict(ctx, [][]byte{{1}}, 0)
	assert.True(t, errors.IsUnavailable(err), "err = %v", err)
}

func TestNewValidates(t *testing.T) {
	_, err := New("not a url")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))

	_, err = New("http://localhost:8000", WithInterval(0))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))

	c, err := New("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL)
	assert.Equal(t, "http://localhost:8000", c.ServiceURL())
	assert.Equal(t, DefaultInterval, c.Interval)
}
