package httputil

import (
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/repotrack/pkg/observability"
)

// PoliteTransport allows one request in flight per host and waits Delay
// between the end of one response and the start of the next request to the
// same host. A host slot is held until the response body is closed, so
// callers must always close bodies.
//
// Requests whose URL has no host share a single slot.
type PoliteTransport struct {
	Base  http.RoundTripper // http.DefaultTransport when nil
	Delay time.Duration

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

type hostSlot struct {
	sem      *semaphore.Weighted
	released time.Time // guarded by sem
}

// NewPoliteTransport returns a PoliteTransport over base.
func NewPoliteTransport(base http.RoundTripper, delay time.Duration) *PoliteTransport {
	return &PoliteTransport{Base: base, Delay: delay}
}

func (t *PoliteTransport) slot(host string) *hostSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hosts == nil {
		t.hosts = make(map[string]*hostSlot)
	}
	s, ok := t.hosts[host]
	if !ok {
		s = &hostSlot{sem: semaphore.NewWeighted(1)}
		t.hosts[host] = s
	}
	return s
}

func (s *hostSlot) release() {
	s.released = time.Now()
	s.sem.Release(1)
}

// RoundTrip implements http.RoundTripper.
func (t *PoliteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	host, path := req.URL.Hostname(), req.URL.Path
	s := t.slot(host)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if wait := time.Until(s.released.Add(t.Delay)); !s.released.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.release()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := base.RoundTrip(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		s.release()
		return nil, err
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	resp.Body = &releasingBody{ReadCloser: resp.Body, release: sync.OnceFunc(s.release)}
	return resp, nil
}

// releasingBody frees the host slot when the body is closed.
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
