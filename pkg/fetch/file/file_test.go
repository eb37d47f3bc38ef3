package file

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/repotrack/pkg/compression"
	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
)

// upstream is a fake index server with a mutable payload.
type upstream struct {
	mu        sync.Mutex
	body      []byte
	etag      string
	status    int
	lastQuery string
	conds     int
	transfers int
}

func (u *upstream) set(body, etag string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.body, u.etag = []byte(body), etag
}

func (u *upstream) fail(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

func (u *upstream) stats() (conds, transfers int, lastQuery string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conds, u.transfers, u.lastQuery
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastQuery = r.URL.RawQuery
	if u.status != 0 {
		w.WriteHeader(u.status)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		u.conds++
		if u.etag != "" && inm == u.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	if u.etag != "" {
		w.Header().Set("ETag", u.etag)
	}
	u.transfers++
	w.Write(u.body)
}

func newFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return f
}

// fetchAndCommit runs one fetch cycle and commits an update.
func fetchAndCommit(t *testing.T, f *Fetcher, dir string, client *http.Client) bool {
	t.Helper()
	out, err := f.Fetch(context.Background(), dir, client)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if out.Updated() {
		if err := out.Staging.Commit(); err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
	}
	return out.Updated()
}

func readState(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(fetch.StatePath(dir))
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	return string(data)
}

func countGenerations(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(dir + ".gen-*")
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func TestFetchETag(t *testing.T) {
	up := &upstream{}
	up.set("v1 payload", `"v1"`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL + "/INDEX"
	f := newFetcher(t, opts)

	if !fetchAndCommit(t, f, dir, srv.Client()) {
		t.Fatal("first fetch: Updated() = false, want true")
	}
	if got := readState(t, dir); got != "v1 payload" {
		t.Errorf("state = %q, want %q", got, "v1 payload")
	}
	if got := fetch.LoadMetadata(dir).ETag; got != `"v1"` {
		t.Errorf("stored ETag = %q, want %q", got, `"v1"`)
	}

	if fetchAndCommit(t, f, dir, srv.Client()) {
		t.Error("second fetch: Updated() = true, want false")
	}
	if conds, transfers, _ := up.stats(); conds != 1 || transfers != 1 {
		t.Errorf("conditional requests = %d, transfers = %d, want 1 and 1", conds, transfers)
	}

	up.set("v2 payload", `"v2"`)
	if !fetchAndCommit(t, f, dir, srv.Client()) {
		t.Fatal("fetch after change: Updated() = false, want true")
	}
	if got := readState(t, dir); got != "v2 payload" {
		t.Errorf("state = %q, want %q", got, "v2 payload")
	}
	// The superseded generation is reclaimed by the next fetch's cleanup.
	if n := countGenerations(t, dir); n != 2 {
		t.Errorf("generations on disk = %d, want 2", n)
	}
	fetchAndCommit(t, f, dir, srv.Client())
	if n := countGenerations(t, dir); n != 1 {
		t.Errorf("generations after next fetch = %d, want 1", n)
	}
}

func TestFetchETagRotation(t *testing.T) {
	up := &upstream{}
	up.set("same payload", `"v1"`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL + "/INDEX"
	f := newFetcher(t, opts)

	if !fetchAndCommit(t, f, dir, srv.Client()) {
		t.Fatal("first fetch: Updated() = false, want true")
	}

	// Identical content under a new ETag: the new ETag must be committed.
	up.set("same payload", `"v2"`)
	if !fetchAndCommit(t, f, dir, srv.Client()) {
		t.Fatal("fetch after ETag rotation: Updated() = false, want true")
	}
	if got := fetch.LoadMetadata(dir).ETag; got != `"v2"` {
		t.Errorf("stored ETag = %q, want %q", got, `"v2"`)
	}

	for i := range 3 {
		if fetchAndCommit(t, f, dir, srv.Client()) {
			t.Errorf("cycle %d: Updated() = true, want false", i)
		}
	}
	if _, transfers, _ := up.stats(); transfers != 2 {
		t.Errorf("full transfers = %d, want 2", transfers)
	}
	if got := readState(t, dir); got != "same payload" {
		t.Errorf("state = %q, want %q", got, "same payload")
	}
}

func TestFetchChecksum(t *testing.T) {
	up := &upstream{}
	up.set("no etag here", "")
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL
	f := newFetcher(t, opts)

	if !fetchAndCommit(t, f, dir, srv.Client()) {
		t.Fatal("first fetch: Updated() = false, want true")
	}
	before, _ := os.Readlink(dir)

	if fetchAndCommit(t, f, dir, srv.Client()) {
		t.Error("identical payload: Updated() = true, want false")
	}
	after, _ := os.Readlink(dir)
	if before != after {
		t.Errorf("committed generation changed from %s to %s", before, after)
	}
	if _, transfers, _ := up.stats(); transfers != 2 {
		t.Errorf("transfers = %d, want 2", transfers)
	}
	if n := countGenerations(t, dir); n != 1 {
		t.Errorf("generations on disk = %d, want 1 (unchanged staging discarded)", n)
	}
}

func TestFetchUnconditional(t *testing.T) {
	up := &upstream{}
	up.set("static", `"static"`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL
	opts.Unconditional = true
	f := newFetcher(t, opts)

	for i := range 3 {
		if !fetchAndCommit(t, f, dir, srv.Client()) {
			t.Errorf("fetch %d: Updated() = false, want true", i)
		}
	}
	if conds, _, _ := up.stats(); conds != 0 {
		t.Errorf("conditional requests = %d, want 0", conds)
	}
	if got := readState(t, dir); got != "static" {
		t.Errorf("state = %q, want %q", got, "static")
	}
}

func TestFetchCompressed(t *testing.T) {
	want := strings.Repeat("pkg|1.0|summary\n", 1000)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(want))
	zw.Close()

	up := &upstream{}
	up.set(buf.String(), "")
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL + "/INDEX.gz"
	opts.Compression = compression.Gzip
	fetchAndCommit(t, newFetcher(t, opts), dir, srv.Client())

	if got := readState(t, dir); got != want {
		t.Errorf("state length = %d, want %d", len(got), len(want))
	}
}

func TestFetchZeroSize(t *testing.T) {
	up := &upstream{}
	up.set("", "")
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL

	opts.AllowZeroSize = false
	_, err := newFetcher(t, opts).Fetch(context.Background(), dir, srv.Client())
	if !errors.Is(err, ErrZeroSize) {
		t.Errorf("Fetch() error = %v, want %v", err, ErrZeroSize)
	}
	if n := countGenerations(t, dir); n != 0 {
		t.Errorf("generations on disk = %d, want 0", n)
	}

	opts.AllowZeroSize = true
	if !fetchAndCommit(t, newFetcher(t, opts), dir, srv.Client()) {
		t.Error("Updated() = false, want true")
	}
}

func TestFetchFailureKeepsGeneration(t *testing.T) {
	up := &upstream{}
	up.set("good", `"good"`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL
	f := newFetcher(t, opts)
	fetchAndCommit(t, f, dir, srv.Client())

	up.fail(http.StatusNotFound)
	_, err := f.Fetch(context.Background(), dir, srv.Client())
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Errorf("Fetch() error = %v, want code %v", err, apperrors.ErrCodeNetwork)
	}
	if got := readState(t, dir); got != "good" {
		t.Errorf("state = %q, want %q", got, "good")
	}
}

func TestFetchAbortedMidBody(t *testing.T) {
	var stall atomic.Bool
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !stall.Load() {
			w.Write([]byte("good"))
			return
		}
		w.Write([]byte(strings.Repeat("partial ", 1024)))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	dir := filepath.Join(t.TempDir(), "source")
	opts := DefaultOptions()
	opts.URL = srv.URL
	f := newFetcher(t, opts)
	fetchAndCommit(t, f, dir, srv.Client())
	committed, _ := os.Readlink(dir)

	stall.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out, err := f.Fetch(ctx, dir, srv.Client())

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Fetch() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Errorf("Fetch() code = %v, want %v", apperrors.GetCode(err), apperrors.ErrCodeNetwork)
	}
	if strings.Contains(err.Error(), "decode") {
		t.Errorf("Fetch() error = %q, reported as a decode failure", err)
	}
	if out.Updated() {
		t.Error("aborted fetch returned a staging area")
	}
	if got, _ := os.Readlink(dir); got != committed {
		t.Errorf("committed generation changed from %s to %s", committed, got)
	}
	if got := readState(t, dir); got != "good" {
		t.Errorf("state = %q, want %q", got, "good")
	}

	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Errorf("siblings = %v, want only the link and its generation", names)
	}
}

func TestFetchCacheBuster(t *testing.T) {
	up := &upstream{}
	up.set("x", "")
	srv := httptest.NewServer(up)
	defer srv.Close()

	opts := DefaultOptions()
	opts.URL = srv.URL + "/index?t=@TS@"
	opts.CacheBuster = "@TS@"
	f := newFetcher(t, opts)
	f.now = func() time.Time { return time.UnixMilli(1700000000123) }

	fetchAndCommit(t, f, filepath.Join(t.TempDir(), "source"), srv.Client())
	if _, _, q := up.stats(); q != "t=1700000000123" {
		t.Errorf("query = %q, want %q", q, "t=1700000000123")
	}
}

func TestFactory(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"minimal", "url: https://example.org/INDEX\n", false},
		{"full", "url: https://example.org/INDEX.xz\ncompression: xz\ntimeout: 5m\nallow_zero_size: false\nunconditional: true\n", false},
		{"missing url", "timeout: 5m\n", true},
		{"bad scheme", "url: ftp://example.org/INDEX\n", true},
		{"unknown option", "url: https://example.org/\nmirror: true\n", true},
		{"bad compression", "url: https://example.org/\ncompression: rar\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Factory.New([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Factory.New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsConfig(err) {
				t.Errorf("error %v is not a configuration error", err)
			}
			if err == nil && f == nil {
				t.Error("Factory.New() returned nil fetcher")
			}
		})
	}
}
