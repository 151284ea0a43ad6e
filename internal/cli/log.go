package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/observability"
)

// newLogger creates a logger writing to w at level, timestamped "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to milliseconds, e.g.
// "Exported welcome (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Observability
// =============================================================================

// logHooks reports export, cache and HTTP events at debug level.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.ExportHooks = (*logHooks)(nil)
	_ observability.CacheHooks  = (*logHooks)(nil)
	_ observability.HTTPHooks   = (*logHooks)(nil)
)

// registerHooks installs logHooks for every event family.
func registerHooks(l *log.Logger) {
	h := &logHooks{logger: l.WithPrefix("hooks")}
	observability.SetExportHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *logHooks) OnExportStart(_ context.Context, root string, tables int) {
	h.logger.Debug("export started", "root", root, "tables", tables)
}

func (h *logHooks) OnNodeRendered(_ context.Context, node, kind string) {
	h.logger.Debug("node rendered", "node", node, "kind", kind)
}

func (h *logHooks) OnNodeSkipped(_ context.Context, node string, err error) {
	h.logger.Warn("node skipped", "node", node, "err", err)
}

func (h *logHooks) OnExportComplete(_ context.Context, root string, fragments int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("export failed", "root", root, "err", err)
		return
	}
	h.logger.Debug("export complete", "root", root, "fragments", fragments, "duration", d)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *logHooks) OnRequest(context.Context, string, string) {}

func (h *logHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("request", "method", method, "path", path, "status", status, "duration", d)
}

func (h *logHooks) OnError(_ context.Context, method, path string, err error) {
	h.logger.Error("request failed", "method", method, "path", path, "err", err)
}
