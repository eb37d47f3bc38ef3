// Package fetchers provides the complete list of fetcher implementations.
//
// This package exists to break import cycles: the individual fetcher
// packages (file, repodata, git) import pkg/fetch, so pkg/fetch cannot
// import them back. Consumers that create fetchers by name import this
// package instead.
//
// Usage:
//
//	f, err := fetchers.Create("FileFetcher", []byte("url: https://example.org/INDEX.xz\ncompression: xz\n"))
package fetchers

import (
	"errors"
	"slices"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/fetch/file"
	"github.com/matzehuels/repotrack/pkg/fetch/git"
	"github.com/matzehuels/repotrack/pkg/fetch/repodata"
)

// ErrInvalidFetcherName is returned by Create for an unregistered name.
var ErrInvalidFetcherName = errors.New("invalid fetcher name")

// All is the canonical list of fetcher factories.
var All = []*fetch.Factory{
	file.Factory,
	repodata.Factory,
	git.Factory,
}

// Find returns the factory with the given name, or nil if not found.
func Find(name string) *fetch.Factory {
	return fetch.FindFactory(name, All)
}

// Names returns the sorted names of all registered fetchers.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, f := range All {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

// Create looks up name and builds a fetcher from the YAML options document.
func Create(name string, options []byte) (fetch.Fetcher, error) {
	f := Find(name)
	if f == nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFetcher, ErrInvalidFetcherName, "%q", name)
	}
	return f.New(options)
}
