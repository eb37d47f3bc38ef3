// Package parsers provides the complete list of parser implementations.
//
// The individual parser packages import pkg/parse, so pkg/parse cannot
// import them back. Consumers that create parsers by name import this
// package instead.
//
// Usage:
//
//	p, err := parsers.Create("RepodataParser", []byte("disttags: [fc]\n"))
package parsers

import (
	"errors"
	"slices"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/freebsd"
	"github.com/matzehuels/repotrack/pkg/parse/repodata"
	"github.com/matzehuels/repotrack/pkg/parse/stalix"
	"github.com/matzehuels/repotrack/pkg/parse/tincan"
	"github.com/matzehuels/repotrack/pkg/parse/yacp"
)

// ErrInvalidParserName is returned by Create for an unregistered name.
var ErrInvalidParserName = errors.New("invalid parser name")

// All is the canonical list of parser factories.
var All = []*parse.Factory{
	freebsd.Factory,
	stalix.Factory,
	tincan.Factory,
	yacp.Factory,
	repodata.Factory,
}

// Find returns the factory with the given name, or nil if not found.
func Find(name string) *parse.Factory {
	return parse.FindFactory(name, All)
}

// Names returns the sorted names of all registered parsers.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, f := range All {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

// Create looks up name and builds a parser from the YAML options document.
// A nil or empty document selects the parser's defaults.
func Create(name string, options []byte) (parse.Parser, error) {
	f := Find(name)
	if f == nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidParser, ErrInvalidParserName, "%q", name)
	}
	return f.New(options)
}
