// Package file implements a fetcher that downloads a single URL.
//
// By default the transfer is conditional: the stored ETag is sent as
// If-None-Match, and a payload whose blake3 checksum equals the stored one is
// dropped instead of being staged. With the unconditional option every
// invocation transfers and stages the payload.
package file

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/repotrack/pkg/compression"
	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/httputil"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// Name is the registry name of this fetcher.
const Name = "FileFetcher"

// ErrZeroSize is returned when an empty payload is received and
// Options.AllowZeroSize is false.
var ErrZeroSize = errors.New("refusing to accept zero size response")

// Options configures a Fetcher.
type Options struct {
	URL           string            `yaml:"url"`
	Compression   compression.Codec `yaml:"compression"`
	Timeout       time.Duration     `yaml:"timeout"`
	AllowZeroSize bool              `yaml:"allow_zero_size"`

	// CacheBuster, when set, is a placeholder in URL replaced by the current
	// unix time in milliseconds on each fetch.
	CacheBuster string `yaml:"cache_buster"`

	UserAgent     string `yaml:"user_agent"`
	Unconditional bool   `yaml:"unconditional"`
}

// DefaultOptions returns the options applied before decoding a document.
func DefaultOptions() Options {
	return Options{
		Timeout:       time.Minute,
		AllowZeroSize: true,
		UserAgent:     httputil.DefaultUserAgent,
	}
}

// Fetcher downloads Options.URL into the state file of a new generation.
type Fetcher struct {
	opts Options
	now  func() time.Time
}

// New validates opts and returns a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if err := apperrors.ValidateURL(opts.URL); err != nil {
		return nil, err
	}
	return &Fetcher{opts: opts, now: time.Now}, nil
}

// Factory registers the fetcher under [Name].
var Factory = &fetch.Factory{
	Name: Name,
	New: func(doc []byte) (fetch.Fetcher, error) {
		opts := DefaultOptions()
		if err := fetch.DecodeOptions(doc, &opts); err != nil {
			return nil, err
		}
		return New(opts)
	},
}

func (f *Fetcher) url() string {
	if f.opts.CacheBuster == "" {
		return f.opts.URL
	}
	ms := strconv.FormatInt(f.now().UnixMilli(), 10)
	return strings.ReplaceAll(f.opts.URL, f.opts.CacheBuster, ms)
}

// Fetch implements fetch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, dir string, client *http.Client) (out fetch.Outcome, err error) {
	store := transact.New(dir)
	if err := store.Cleanup(); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "clean up %s", dir)
	}

	var prev fetch.Metadata
	current, hasCurrent := store.Current()
	if hasCurrent && !f.opts.Unconditional {
		prev = fetch.LoadMetadata(current)
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	url := f.url()
	req := httputil.Request{URL: url, UserAgent: f.opts.UserAgent}
	if prev.ETag != "" {
		req.Headers = map[string]string{"If-None-Match": prev.ETag}
		req.AllowNotModified = true
	}

	resp, err := httputil.Get(ctx, client, req)
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return fetch.Unchanged(), nil
	}

	staging, err := store.Begin()
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "begin replace of %s", dir)
	}
	defer func() {
		if !out.Updated() {
			_ = staging.Discard()
		}
	}()

	statePath := filepath.Join(staging.Path(), fetch.StateFileName)
	n, err := compression.StreamToFile(resp.Body, statePath, f.opts.Compression)
	if err != nil {
		return out, fetch.TransferError(ctx, err, url)
	}
	if n == 0 && !f.opts.AllowZeroSize {
		return out, apperrors.Wrap(apperrors.ErrCodeNetwork, ErrZeroSize, "transfer %s", url)
	}

	checksum, err := fetch.FileChecksum(statePath)
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "checksum %s", statePath)
	}
	// Same content under a new ETag is committed anyway, or every later
	// cycle would send the stale ETag and transfer the payload again.
	etag := resp.Header.Get("ETag")
	if prev.Checksum != "" && prev.Checksum == checksum && (etag == "" || etag == prev.ETag) {
		return fetch.Unchanged(), nil
	}

	meta := fetch.Metadata{ETag: etag, Checksum: checksum}
	if err := fetch.SaveMetadata(meta, staging.Path()); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save fetch metadata")
	}
	return fetch.Updated(staging), nil
}
