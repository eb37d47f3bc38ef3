package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
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

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Parsed 42 records (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability hooks
// =============================================================================

// logHooks reports pipeline and HTTP events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h *logHooks) OnFetchStart(_ context.Context, source string) {
	h.logger.Debug("fetch started", "source", source)
}

func (h *logHooks) OnFetchComplete(_ context.Context, source string, updated bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("fetch failed", "source", source, "duration", d, "error", err)
		return
	}
	h.logger.Debug("fetch finished", "source", source, "updated", updated, "duration", d)
}

func (h *logHooks) OnParseStart(_ context.Context, source, parser string) {
	h.logger.Debug("parse started", "source", source, "parser", parser)
}

func (h *logHooks) OnParseComplete(_ context.Context, source, parser string, records int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("parse failed", "source", source, "records", records, "duration", d, "error", err)
		return
	}
	h.logger.Debug("parse finished", "source", source, "parser", parser, "records", records, "duration", d)
}

func (h *logHooks) OnCommit(_ context.Context, source string, err error) {
	if err != nil {
		h.logger.Debug("generation rejected", "source", source, "error", err)
		return
	}
	h.logger.Debug("generation committed", "source", source)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

// requestCounter tallies upstream traffic for the end-of-run summary.
type requestCounter struct {
	sent        atomic.Int64
	notModified atomic.Int64
	failed      atomic.Int64
}

func (r *requestCounter) OnRequest(context.Context, string, string, string) { r.sent.Add(1) }

func (r *requestCounter) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	if status == http.StatusNotModified {
		r.notModified.Add(1)
	}
}

func (r *requestCounter) OnError(context.Context, string, string, string, error) { r.failed.Add(1) }

// String summarizes the counts, e.g. "12 requests, 9 not modified".
func (r *requestCounter) String() string {
	s := fmt.Sprintf("%d requests", r.sent.Load())
	if n := r.notModified.Load(); n > 0 {
		s += fmt.Sprintf(", %d not modified", n)
	}
	if n := r.failed.Load(); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	return s
}
