// Package git implements a fetcher whose payload is the file tree of a git
// repository at the head of one branch.
//
// Remote references are listed first; when the branch head matches the
// commit recorded in the committed generation nothing is transferred.
// Otherwise a shallow clone is written to the state directory of a new
// generation and its .git directory is removed, leaving a plain tree for
// parsers to walk.
package git

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// Name is the registry name of this fetcher.
const Name = "GitFetcher"

// ErrBranchNotFound is returned when the remote does not advertise the
// requested branch.
var ErrBranchNotFound = errors.New("branch not found on remote")

// Options configures a Fetcher.
type Options struct {
	URL     string        `yaml:"url"`
	Branch  string        `yaml:"branch"` // remote HEAD when empty
	Depth   int           `yaml:"depth"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultOptions returns the options applied before decoding a document.
func DefaultOptions() Options {
	return Options{Depth: 1, Timeout: 5 * time.Minute}
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

// Fetcher clones a git repository into a new generation.
type Fetcher struct {
	opts Options
}

// New validates opts and returns a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if err := apperrors.ValidateURL(opts.URL, "https", "http", "git", "ssh", "file"); err != nil {
		return nil, err
	}
	if opts.Depth < 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidOptions, "depth must not be negative, got %d", opts.Depth)
	}
	return &Fetcher{opts: opts}, nil
}

// head resolves the branch to fetch and its current commit on the remote.
func (f *Fetcher) head(ctx context.Context) (plumbing.ReferenceName, plumbing.Hash, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{f.opts.URL},
	})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return "", plumbing.ZeroHash, err
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	name := plumbing.NewBranchReferenceName(f.opts.Branch)
	if f.opts.Branch == "" {
		name = plumbing.HEAD
	}
	for range 2 {
		r, ok := byName[name]
		if !ok {
			break
		}
		if r.Type() == plumbing.SymbolicReference {
			name = r.Target()
			continue
		}
		return name, r.Hash(), nil
	}
	return "", plumbing.ZeroHash, ErrBranchNotFound
}

// Fetch implements fetch.Fetcher. The HTTP client is not used: go-git
// manages its own transports.
func (f *Fetcher) Fetch(ctx context.Context, dir string, _ *http.Client) (out fetch.Outcome, err error) {
	store := transact.New(dir)
	if err := store.Cleanup(); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "clean up %s", dir)
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	ref, hash, err := f.head(ctx)
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "list references of %s", f.opts.URL)
	}
	if current, ok := store.Current(); ok && fetch.LoadMetadata(current).Checksum == hash.String() {
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

	tree := filepath.Join(staging.Path(), fetch.StateFileName)
	repo, err := gogit.PlainCloneContext(ctx, tree, false, &gogit.CloneOptions{
		URL:           f.opts.URL,
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         f.opts.Depth,
		Tags:          gogit.NoTags,
	})
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "clone %s", f.opts.URL)
	}

	// The head may have moved between listing and cloning.
	if h, err := repo.Head(); err == nil {
		hash = h.Hash()
	}
	if err := os.RemoveAll(filepath.Join(tree, gogit.GitDirName)); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "remove git metadata")
	}

	if err := fetch.SyncTree(tree); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "sync %s", tree)
	}
	if err := fetch.SaveMetadata(fetch.Metadata{Checksum: hash.String()}, staging.Path()); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save fetch metadata")
	}
	return fetch.Updated(staging), nil
}
