// Package config loads the sources file that drives repeated ingestion.
//
// The file is YAML:
//
//	state_dir: ${HOME}/repotrack
//	user_agent: repotrack/1.0 (+https://example.org/about)
//	politeness_delay: 1s
//	jobs: 4
//	commit_policy: after-parse
//	sources:
//	  - name: freebsd
//	    fetcher: FileFetcher
//	    fetcher_options:
//	      url: https://pkg.example.org/INDEX-14.xz
//	      compression: xz
//	    parser: FreeBsdParser
//
// Fetcher and parser options are kept as raw YAML and decoded by the
// selected implementation, so each one validates its own schema. A source
// with a bad name or options fails on its own; the rest still load.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch/fetchers"
	"github.com/matzehuels/repotrack/pkg/httputil"
	"github.com/matzehuels/repotrack/pkg/parse/parsers"
	"github.com/matzehuels/repotrack/pkg/pipeline"
)

// EnvVar names the environment variable consulted by Load.
const EnvVar = "REPOTRACK_CONFIG"

// Config is the parsed sources file.
type Config struct {
	// StateDir holds one committed path per source.
	StateDir string `yaml:"state_dir"`

	// UserAgent is sent with every HTTP request.
	UserAgent string `yaml:"user_agent"`

	// PolitenessDelay is the minimum pause between two requests to the
	// same host.
	PolitenessDelay time.Duration `yaml:"politeness_delay"`

	// Timeout bounds a whole update run. Zero means no limit; fetchers
	// still apply their own timeouts.
	Timeout time.Duration `yaml:"timeout"`

	// Jobs bounds concurrently running sources. Zero means no limit.
	Jobs int `yaml:"jobs"`

	// CommitPolicy is "immediate" or "after-parse".
	CommitPolicy string `yaml:"commit_policy"`

	Sources []Source `yaml:"sources"`
}

// Source configures one upstream repository.
type Source struct {
	Name           string    `yaml:"name"`
	Fetcher        string    `yaml:"fetcher"`
	FetcherOptions yaml.Node `yaml:"fetcher_options"`
	Parser         string    `yaml:"parser"`
	ParserOptions  yaml.Node `yaml:"parser_options"`

	// StateDir overrides <state_dir>/<name> as the committed path.
	StateDir string `yaml:"state_dir"`
}

// DefaultStateDir returns $XDG_CACHE_HOME/repotrack, or
// ~/.cache/repotrack when XDG_CACHE_HOME is unset.
func DefaultStateDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", appName)
}

const appName = "repotrack"

// Default returns the configuration used before a file is loaded.
func Default() *Config {
	return &Config{
		StateDir:        DefaultStateDir(),
		PolitenessDelay: time.Second,
		Jobs:            4,
		CommitPolicy:    pipeline.CommitImmediately.String(),
	}
}

// Load loads the file named by REPOTRACK_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			"%s environment variable not set; set it to the path of your sources file, or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads and validates the sources file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, err, "read config")
	}
	return Parse(data)
}

// Parse decodes a sources document over the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode config")
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.StateDir = expandVars(c.StateDir)
	for i := range c.Sources {
		c.Sources[i].StateDir = expandVars(c.Sources[i].StateDir)
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the file-level settings and source identities. Fetcher
// and parser options are checked by BuildSources.
func (c *Config) Validate() error {
	var errs []error

	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir is required"))
	}
	if c.PolitenessDelay < 0 {
		errs = append(errs, fmt.Errorf("politeness_delay must not be negative, got %s", c.PolitenessDelay))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if _, err := pipeline.ParsePolicy(c.CommitPolicy); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
		case strings.ContainsAny(s.Name, `/\`) || s.Name == "." || s.Name == "..":
			errs = append(errs, fmt.Errorf("sources[%d]: name %q is not a valid directory name", i, s.Name))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if s.Fetcher == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: fetcher is required", i))
		}
		if s.Parser == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: parser is required", i))
		}
	}

	return errors.Join(errs...)
}

// Policy returns the configured commit policy.
func (c *Config) Policy() pipeline.Policy {
	p, _ := pipeline.ParsePolicy(c.CommitPolicy)
	return p
}

// Client returns the HTTP client shared by all sources: requests to one
// host are serialized and spaced by PolitenessDelay.
func (c *Config) Client() *http.Client {
	return &http.Client{
		Transport: &httputil.UserAgentTransport{
			Base:      httputil.NewPoliteTransport(nil, c.PolitenessDelay),
			UserAgent: c.UserAgent,
		},
	}
}

// Find returns the source with the given name.
func (c *Config) Find(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// Dir returns the committed path of s.
func (c *Config) Dir(s Source) string {
	if s.StateDir != "" {
		return s.StateDir
	}
	return filepath.Join(c.StateDir, s.Name)
}

// Build creates the fetcher and parser of s. Errors are configuration
// errors of this source only.
func (c *Config) Build(s Source) (pipeline.Source, error) {
	fetcherOpts, err := encodeNode(&s.FetcherOptions)
	if err != nil {
		return pipeline.Source{}, apperrors.Wrap(apperrors.ErrCodeInvalidOptions, err, "source %s: fetcher_options", s.Name)
	}
	f, err := fetchers.Create(s.Fetcher, fetcherOpts)
	if err != nil {
		return pipeline.Source{}, apperrors.Wrap(apperrors.GetCode(err), err, "source %s", s.Name)
	}

	parserOpts, err := encodeNode(&s.ParserOptions)
	if err != nil {
		return pipeline.Source{}, apperrors.Wrap(apperrors.ErrCodeInvalidOptions, err, "source %s: parser_options", s.Name)
	}
	p, err := parsers.Create(s.Parser, parserOpts)
	if err != nil {
		return pipeline.Source{}, apperrors.Wrap(apperrors.GetCode(err), err, "source %s", s.Name)
	}

	return pipeline.Source{Name: s.Name, Fetcher: f, Parser: p, Dir: c.Dir(s)}, nil
}

// BuildSources builds the named sources, or all sources when names is
// empty. Sources that fail to build are reported in the returned error and
// left out; the others are still returned.
func (c *Config) BuildSources(names ...string) ([]pipeline.Source, error) {
	selected := c.Sources
	var errs []error
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			s, ok := c.Find(name)
			if !ok {
				errs = append(errs, apperrors.New(apperrors.ErrCodeInvalidSource, "unknown source %q", name))
				continue
			}
			selected = append(selected, s)
		}
	}

	built := make([]pipeline.Source, 0, len(selected))
	for _, s := range selected {
		ps, err := c.Build(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		built = append(built, ps)
	}
	return built, errors.Join(errs...)
}

// encodeNode re-serializes an options subtree for a factory. An absent
// subtree yields nil, which selects the implementation's defaults.
func encodeNode(n *yaml.Node) ([]byte, error) {
	if n.IsZero() {
		return nil, nil
	}
	return yaml.Marshal(n)
}
