package fetch

import (
	"context"
	"net/http"
	"path/filepath"
	"slices"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// File names inside a generation directory.
const (
	StateFileName    = "state"
	MetadataFileName = "metadata.json"
)

// Fetcher obtains a source's payload from upstream.
//
// dir is the source's committed path as managed by [transact.Store]. A
// Fetcher must never modify the committed generation: new data goes into a
// staging area returned through [Outcome]. Implementations are safe to call
// again after any failure.
type Fetcher interface {
	Fetch(ctx context.Context, dir string, client *http.Client) (Outcome, error)
}

// Outcome is the result of a successful fetch. A nil Staging means the
// upstream data is unchanged and the committed generation stays
// authoritative.
type Outcome struct {
	Staging *transact.Staging
}

// Unchanged returns an Outcome reporting no transfer.
func Unchanged() Outcome { return Outcome{} }

// Updated returns an Outcome carrying a populated staging area.
func Updated(s *transact.Staging) Outcome { return Outcome{Staging: s} }

// Updated reports whether new data was staged.
func (o Outcome) Updated() bool { return o.Staging != nil }

// TransferError wraps a failed payload transfer from url. When ctx was
// cancelled or timed out, the context error is reported instead of the read
// or decode error it caused.
func TransferError(ctx context.Context, err error, url string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.Wrap(apperrors.ErrCodeNetwork, ctxErr, "transfer %s aborted", url)
	}
	return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "transfer %s", url)
}

// StatePath returns the payload path inside the committed generation of dir.
func StatePath(dir string) string { return filepath.Join(dir, StateFileName) }

// Factory constructs a Fetcher from a YAML options document.
type Factory struct {
	Name string
	New  func(options []byte) (Fetcher, error)
}

// FindFactory returns the factory with the given name, or nil if not found.
func FindFactory(name string, all []*Factory) *Factory {
	i := slices.IndexFunc(all, func(f *Factory) bool { return f.Name == name })
	if i < 0 {
		return nil
	}
	return all[i]
}
