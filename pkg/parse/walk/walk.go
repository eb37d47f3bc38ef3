// Package walk finds files in a payload tree in a deterministic order.
package walk

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"
)

// Entry is a matched regular file.
type Entry struct {
	Path string // root joined with Rel
	Rel  string // slash-separated path relative to root
}

// Walker visits regular files under a root in lexical order, skipping
// paths matched by gitignore-style patterns.
type Walker struct {
	Fs     afero.Fs // OS filesystem when nil
	Ignore []string
}

// ByName calls fn for every file named exactly name.
func (w Walker) ByName(root, name string, fn func(Entry) error) error {
	return w.walk(root, func(base string) bool { return base == name }, fn)
}

// BySuffix calls fn for every file whose name ends with suffix.
func (w Walker) BySuffix(root, suffix string, fn func(Entry) error) error {
	return w.walk(root, func(base string) bool { return strings.HasSuffix(base, suffix) }, fn)
}

func (w Walker) walk(root string, match func(string) bool, fn func(Entry) error) error {
	fsys := w.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	var matcher gitignore.Matcher
	if len(w.Ignore) > 0 {
		patterns := make([]gitignore.Pattern, 0, len(w.Ignore))
		for _, p := range w.Ignore {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
		matcher = gitignore.NewMatcher(patterns)
	}

	return afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matcher != nil && rel != "." && matcher.Match(strings.Split(rel, "/"), info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !match(info.Name()) {
			return nil
		}
		return fn(Entry{Path: path, Rel: rel})
	})
}

// ByName walks the OS filesystem; see [Walker.ByName].
func ByName(root, name string, fn func(Entry) error) error {
	return Walker{}.ByName(root, name, fn)
}

// BySuffix walks the OS filesystem; see [Walker.BySuffix].
func BySuffix(root, suffix string, fn func(Entry) error) error {
	return Walker{}.BySuffix(root, suffix, fn)
}
