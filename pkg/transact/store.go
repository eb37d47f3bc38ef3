package transact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	generationInfix = ".gen-"
	linkInfix       = ".link-"
)

var (
	// ErrNotManaged is returned when the store path exists but is not a
	// symbolic link created by a Store.
	ErrNotManaged = errors.New("path is not managed by a replace store")

	// ErrHandleClosed is returned when a Staging handle is used after it was
	// committed or discarded.
	ErrHandleClosed = errors.New("staging handle already committed or discarded")
)

// Store performs atomic directory replacement for a single path.
type Store struct {
	path string
}

// New returns a Store managing path. Nothing is created on disk until the
// first Begin.
func New(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Path returns the managed path. Readers may open files through it directly.
func (s *Store) Path() string { return s.path }

func (s *Store) parent() string { return filepath.Dir(s.path) }
func (s *Store) base() string   { return filepath.Base(s.path) }

// target returns the link target (a sibling directory name) of the managed
// path, or "" when nothing has been committed yet.
func (s *Store) target() (string, error) {
	fi, err := os.Lstat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotManaged, s.path)
	}
	return os.Readlink(s.path)
}

// Current returns the directory of the committed generation. The second
// result is false when nothing has been committed.
func (s *Store) Current() (string, bool) {
	t, err := s.target()
	if err != nil || t == "" {
		return "", false
	}
	return filepath.Join(s.parent(), t), true
}

// Cleanup removes staging directories and temporary links left behind by
// interrupted writers. It is a no-op when there is nothing to remove.
func (s *Store) Cleanup() error {
	current, err := s.target()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(s.parent())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		name := e.Name()
		switch {
		case name == current:
		case s.owns(name, generationInfix):
			errs = append(errs, os.RemoveAll(filepath.Join(s.parent(), name)))
		case s.owns(name, linkInfix):
			errs = append(errs, os.Remove(filepath.Join(s.parent(), name)))
		}
	}
	return errors.Join(errs...)
}

// owns reports whether a sibling entry name was created by this store.
func (s *Store) owns(name, infix string) bool {
	rest, ok := strings.CutPrefix(name, s.base()+infix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// Begin allocates a fresh, empty staging directory.
func (s *Store) Begin() (*Staging, error) {
	if _, err := s.target(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.parent(), 0o755); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.parent(), s.base()+generationInfix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, err
	}
	return &Staging{store: s, dir: dir}, nil
}

// Staging is a not-yet-visible generation. It must end with exactly one
// successful call to Commit or Discard.
type Staging struct {
	store  *Store
	dir    string
	closed bool
}

// Path returns the staging directory writers should populate.
func (h *Staging) Path() string { return h.dir }

// Commit publishes the staging directory as the committed generation.
//
// On failure the previous generation stays in place and the handle remains
// open, so the caller may retry or Discard. The superseded generation is
// left on disk for readers that already resolved the link; the next
// Cleanup reclaims it.
func (h *Staging) Commit() error {
	if h.closed {
		return ErrHandleClosed
	}
	s := h.store

	if _, err := s.target(); err != nil {
		return err
	}
	if err := syncDir(h.dir); err != nil {
		return err
	}

	link := filepath.Join(s.parent(), s.base()+linkInfix+uuid.NewString())
	if err := os.Symlink(filepath.Base(h.dir), link); err != nil {
		return err
	}
	if err := os.Rename(link, s.path); err != nil {
		_ = os.Remove(link)
		return err
	}
	h.closed = true

	_ = syncDir(s.parent())
	return nil
}

// Discard removes the staging directory without publishing it.
func (h *Staging) Discard() error {
	if h.closed {
		return ErrHandleClosed
	}
	h.closed = true
	return os.RemoveAll(h.dir)
}

// syncDir flushes directory entries to stable storage.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
