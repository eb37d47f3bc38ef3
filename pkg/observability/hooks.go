// Package observability lets callers watch ingestion cycles without the
// pipeline importing any logging or metrics backend.
//
// Libraries emit events through the process-wide registry:
//
//	observability.Pipeline().OnFetchStart(ctx, source)
//	observability.HTTP().OnResponse(ctx, "GET", host, path, 200, elapsed)
//
// Programs install receivers once at startup, before running any source.
// Several receivers can be combined with [TeePipeline] and [TeeHTTP]:
//
//	observability.SetPipelineHooks(observability.TeePipeline(logHooks, metrics))
//
// Until something is installed every event goes to a no-op receiver.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the per-source ingestion cycle.
// Implementations must be safe for concurrent use: sources run in parallel.
type PipelineHooks interface {
	OnFetchStart(ctx context.Context, source string)
	// OnFetchComplete reports whether new data was staged.
	OnFetchComplete(ctx context.Context, source string, updated bool, duration time.Duration, err error)

	OnParseStart(ctx context.Context, source, parser string)
	// OnParseComplete counts every record pushed, including a rejected last one.
	OnParseComplete(ctx context.Context, source, parser string, records int, duration time.Duration, err error)

	// OnCommit records the promotion of a staged generation. err is non-nil
	// when the commit failed or the staged data was rejected.
	OnCommit(ctx context.Context, source string, err error)
}

// HTTPHooks receives events from upstream requests. host and path come
// from the request URL; query strings are not reported.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure; no response was received.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopPipelineHooks discards pipeline events. Embed it to implement only
// some of the methods.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnFetchStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, bool, time.Duration, error) {}
func (NoopPipelineHooks) OnParseStart(context.Context, string, string)                        {}
func (NoopPipelineHooks) OnParseComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnCommit(context.Context, string, error) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// TeePipeline returns hooks forwarding every event to each of hs in order.
// Nil entries are skipped.
func TeePipeline(hs ...PipelineHooks) PipelineHooks {
	var t pipelineTee
	for _, h := range hs {
		if h != nil {
			t = append(t, h)
		}
	}
	return t
}

type pipelineTee []PipelineHooks

func (t pipelineTee) OnFetchStart(ctx context.Context, source string) {
	for _, h := range t {
		h.OnFetchStart(ctx, source)
	}
}

func (t pipelineTee) OnFetchComplete(ctx context.Context, source string, updated bool, d time.Duration, err error) {
	for _, h := range t {
		h.OnFetchComplete(ctx, source, updated, d, err)
	}
}

func (t pipelineTee) OnParseStart(ctx context.Context, source, parser string) {
	for _, h := range t {
		h.OnParseStart(ctx, source, parser)
	}
}

func (t pipelineTee) OnParseComplete(ctx context.Context, source, parser string, records int, d time.Duration, err error) {
	for _, h := range t {
		h.OnParseComplete(ctx, source, parser, records, d, err)
	}
}

func (t pipelineTee) OnCommit(ctx context.Context, source string, err error) {
	for _, h := range t {
		h.OnCommit(ctx, source, err)
	}
}

// TeeHTTP returns hooks forwarding every event to each of hs in order.
// Nil entries are skipped.
func TeeHTTP(hs ...HTTPHooks) HTTPHooks {
	var t httpTee
	for _, h := range hs {
		if h != nil {
			t = append(t, h)
		}
	}
	return t
}

type httpTee []HTTPHooks

func (t httpTee) OnRequest(ctx context.Context, method, host, path string) {
	for _, h := range t {
		h.OnRequest(ctx, method, host, path)
	}
}

func (t httpTee) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	for _, h := range t {
		h.OnResponse(ctx, method, host, path, status, d)
	}
}

func (t httpTee) OnError(ctx context.Context, method, host, path string, err error) {
	for _, h := range t {
		h.OnError(ctx, method, host, path, err)
	}
}

type registry struct {
	mu       sync.RWMutex
	pipeline PipelineHooks
	http     HTTPHooks
}

var hooks = registry{pipeline: NoopPipelineHooks{}, http: NoopHTTPHooks{}}

// SetPipelineHooks installs h as the receiver of pipeline events. A nil h
// is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.pipeline = h
}

// SetHTTPHooks installs h as the receiver of HTTP events. A nil h is
// ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.http = h
}

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.pipeline
}

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset restores the no-op receivers. Tests that install hooks call it in
// cleanup.
func Reset() {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.pipeline = NoopPipelineHooks{}
	hooks.http = NoopHTTPHooks{}
}
