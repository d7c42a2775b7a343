package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports every hook event to a structured logger at debug level.
// Failures are reported at warn level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that write to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger.WithPrefix("hooks")}
}

func (h *LogHooks) done(msg string, err error, kv ...any) {
	if err != nil {
		h.logger.Warn(msg, append(kv, "err", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h *LogHooks) OnBuildStart(_ context.Context, flowID string, predictions int) {
	h.logger.Debug("build start", "flow", flowID, "predictions", predictions)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, flowID string, screens, connections int, d time.Duration, err error) {
	h.done("build complete", err, "flow", flowID, "screens", screens, "connections", connections, "duration", d)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, flowID string, screens int) {
	h.logger.Debug("layout start", "flow", flowID, "screens", screens)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, flowID string, d time.Duration, err error) {
	h.done("layout complete", err, "flow", flowID, "duration", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, flowID, format string) {
	h.logger.Debug("render start", "flow", flowID, "format", format)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, flowID, format string, d time.Duration, err error) {
	h.done("render complete", err, "flow", flowID, "format", format, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ BuildHooks = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
	_ HTTPHooks  = (*LogHooks)(nil)
)
