package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch/fetchers"
	"github.com/matzehuels/repotrack/pkg/httputil"
	"github.com/matzehuels/repotrack/pkg/parse/parsers"
	"github.com/matzehuels/repotrack/pkg/pipeline"
)

const sample = `
state_dir: ${REPOTRACK_TEST_ROOT}/state
politeness_delay: 250ms
jobs: 2
commit_policy: after-parse
sources:
  - name: freebsd
    fetcher: FileFetcher
    fetcher_options:
      url: https://pkg.example.org/INDEX-14.xz
      compression: xz
    parser: FreeBsdParser
  - name: fedora
    fetcher: RepodataFetcher
    fetcher_options: {url: "https://mirror.example.org/fedora/39/"}
    parser: RepodataParser
    parser_options:
      disttags: [fc]
    state_dir: /srv/fedora
  - name: tincan
    fetcher: GitFetcher
    fetcher_options:
      url: https://example.org/tincan/ports.git
    parser: TinCanParser
`

func TestParse(t *testing.T) {
	t.Setenv("REPOTRACK_TEST_ROOT", "/tmp/rt")

	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.StateDir != "/tmp/rt/state" {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, "/tmp/rt/state")
	}
	if cfg.PolitenessDelay != 250*time.Millisecond {
		t.Errorf("PolitenessDelay = %v, want 250ms", cfg.PolitenessDelay)
	}
	if cfg.Jobs != 2 || cfg.Policy() != pipeline.CommitAfterParse {
		t.Errorf("Jobs = %d, Policy = %v", cfg.Jobs, cfg.Policy())
	}
	if len(cfg.Sources) != 3 {
		t.Fatalf("len(Sources) = %d, want 3", len(cfg.Sources))
	}

	fedora, ok := cfg.Find("fedora")
	if !ok {
		t.Fatal("Find(fedora) not found")
	}
	if got := cfg.Dir(fedora); got != "/srv/fedora" {
		t.Errorf("Dir(fedora) = %q, want /srv/fedora", got)
	}
	freebsd, _ := cfg.Find("freebsd")
	if got := cfg.Dir(freebsd); got != filepath.Join("/tmp/rt/state", "freebsd") {
		t.Errorf("Dir(freebsd) = %q", got)
	}
}

func TestParseDefaults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/tester")

	cfg, err := Parse([]byte("sources: []\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if want := "/home/tester/.cache/repotrack"; cfg.StateDir != want {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, want)
	}
	if cfg.PolitenessDelay != time.Second || cfg.Jobs != 4 || cfg.Policy() != pipeline.CommitImmediately {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestDefaultStateDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	if got, want := DefaultStateDir(), filepath.Join("/tmp/custom-cache", "repotrack"); got != want {
		t.Errorf("DefaultStateDir() = %q, want %q", got, want)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"unknown key", "state_dirs: /x\n", "state_dirs"},
		{"bad duration", "politeness_delay: soon\n", "decode config"},
		{"negative jobs", "jobs: -1\n", "jobs must not be negative"},
		{"negative timeout", "timeout: -1m\n", "timeout must not be negative"},
		{"bad policy", "commit_policy: never\n", "unknown commit policy"},
		{"missing name", "sources:\n  - fetcher: FileFetcher\n    parser: FreeBsdParser\n", "name is required"},
		{"path name", "sources:\n  - name: a/b\n    fetcher: FileFetcher\n    parser: FreeBsdParser\n", "not a valid directory name"},
		{"duplicate", "sources:\n  - {name: a, fetcher: FileFetcher, parser: FreeBsdParser}\n  - {name: a, fetcher: GitFetcher, parser: TinCanParser}\n", "duplicate name"},
		{"missing parser", "sources:\n  - {name: a, fetcher: FileFetcher}\n", "parser is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
				t.Errorf("GetCode() = %v, want %v", apperrors.GetCode(err), apperrors.ErrCodeInvalidInput)
			}
			if msg := apperrors.UserMessage(err); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("UserMessage() = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestBuildSources(t *testing.T) {
	t.Setenv("REPOTRACK_TEST_ROOT", "/tmp/rt")
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	built, err := cfg.BuildSources()
	if err != nil {
		t.Fatalf("BuildSources() error: %v", err)
	}
	if len(built) != 3 {
		t.Fatalf("len(built) = %d, want 3", len(built))
	}
	if built[1].Name != "fedora" || built[1].Dir != "/srv/fedora" || built[1].Fetcher == nil || built[1].Parser == nil {
		t.Errorf("built[1] = %+v", built[1])
	}

	built, err = cfg.BuildSources("tincan")
	if err != nil || len(built) != 1 || built[0].Name != "tincan" {
		t.Errorf("BuildSources(tincan) = %v, %v", built, err)
	}
}

func TestBuildSourcesPartialFailure(t *testing.T) {
	doc := `
state_dir: /tmp/rt
sources:
  - {name: good, fetcher: FileFetcher, fetcher_options: {url: "https://example.org/INDEX"}, parser: FreeBsdParser}
  - {name: badfetcher, fetcher: FtpFetcher, parser: FreeBsdParser}
  - {name: badparser, fetcher: FileFetcher, fetcher_options: {url: "https://example.org/x"}, parser: DebianParser}
  - {name: badoptions, fetcher: FileFetcher, fetcher_options: {uri: "https://example.org/x"}, parser: FreeBsdParser}
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	built, err := cfg.BuildSources()
	if len(built) != 1 || built[0].Name != "good" {
		t.Errorf("built = %+v, want only good", built)
	}
	if !errors.Is(err, fetchers.ErrInvalidFetcherName) {
		t.Errorf("error = %v, want %v", err, fetchers.ErrInvalidFetcherName)
	}
	if !errors.Is(err, parsers.ErrInvalidParserName) {
		t.Errorf("error = %v, want %v", err, parsers.ErrInvalidParserName)
	}
	if msg := err.Error(); !strings.Contains(msg, "badoptions") {
		t.Errorf("error = %q, want it to mention badoptions", msg)
	}
	if !apperrors.IsConfig(err) {
		t.Errorf("IsConfig(%v) = false, want true", err)
	}

	if _, err := cfg.BuildSources("nope"); !apperrors.Is(err, apperrors.ErrCodeInvalidSource) {
		t.Errorf("BuildSources(nope) error = %v, want %v", err, apperrors.ErrCodeInvalidSource)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Load(); err == nil {
		t.Error("Load() without env var succeeded")
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("state_dir: /tmp/rt\nsources: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvVar, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.StateDir != "/tmp/rt" {
		t.Errorf("StateDir = %q, want /tmp/rt", cfg.StateDir)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("LoadFile(missing) error = %v, want %v", err, apperrors.ErrCodeNotFound)
	}
}

func TestClient(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	cfg, err := Parse([]byte("state_dir: /tmp/rt\nuser_agent: repotrack-test/1\npoliteness_delay: 0s\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	resp, err := httputil.Get(context.Background(), cfg.Client(), httputil.Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if got != "repotrack-test/1" {
		t.Errorf("User-Agent = %q, want %q", got, "repotrack-test/1")
	}
}

func TestExampleSourcesFile(t *testing.T) {
	t.Setenv("HOME", "/home/tracker")
	cfg, err := LoadFile(filepath.Join("..", "..", "examples", "sources.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.StateDir != "/home/tracker/.cache/repotrack" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Policy() != pipeline.CommitAfterParse {
		t.Errorf("Policy() = %v, want %v", cfg.Policy(), pipeline.CommitAfterParse)
	}

	built, err := cfg.BuildSources()
	if err != nil {
		t.Fatalf("BuildSources() error: %v", err)
	}
	if len(built) != len(cfg.Sources) {
		t.Errorf("built %d sources, want %d", len(built), len(cfg.Sources))
	}
}
