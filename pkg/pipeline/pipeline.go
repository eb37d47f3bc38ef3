// Package pipeline runs the per-source ingestion cycle: fetch, commit,
// parse.
//
// This package is the one place where fetchers, the durable store and
// parsers meet. The CLI and any long-running updater use it so that commit
// policy and observability behave the same everywhere.
//
// # Cycle
//
// For each [Source]:
//
//  1. Fetch: the fetcher either reports the upstream unchanged or stages a
//     new generation next to the source directory.
//  2. Commit: the staged generation replaces the committed one atomically.
//     With [CommitAfterParse] the staged payload is parsed first and
//     discarded if parsing fails.
//  3. Parse: the committed payload is parsed into the caller's sink.
//
// # Usage
//
//	runner := pipeline.NewRunner(client, logger)
//	res, err := runner.Run(ctx, pipeline.Source{
//	    Name:    "freebsd",
//	    Fetcher: f,
//	    Parser:  p,
//	    Dir:     "/var/lib/repotrack/freebsd",
//	}, &parse.Accumulator{})
//
// Several sources run concurrently with [Runner.RunAll].
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/parse"
)

// =============================================================================
// Commit Policy
// =============================================================================

// Policy decides when a staged generation becomes visible.
type Policy int

const (
	// CommitImmediately commits right after a successful fetch. A
	// generation that later fails to parse stays committed; the next cycle
	// refetches or reparses it.
	CommitImmediately Policy = iota

	// CommitAfterParse parses the staged payload first and commits only if
	// parsing succeeds, so a broken upstream never replaces good data.
	CommitAfterParse
)

func (p Policy) String() string {
	switch p {
	case CommitImmediately:
		return "immediate"
	case CommitAfterParse:
		return "after-parse"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name as printed by [Policy.String].
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "immediate":
		return CommitImmediately, nil
	case "after-parse":
		return CommitAfterParse, nil
	default:
		return 0, fmt.Errorf("unknown commit policy %q", s)
	}
}

// =============================================================================
// Source and Result
// =============================================================================

// Source is one configured upstream repository.
type Source struct {
	Name    string
	Fetcher fetch.Fetcher
	Parser  parse.Parser
	// Dir is the committed path managed by the durable store. Its parent
	// directory is created on the first fetch.
	Dir string
}

// Result summarizes one cycle of a source.
type Result struct {
	Source    string
	Updated   bool          // a new generation was committed
	Records   int           // builders pushed to the sink, including rejected ones
	FetchTime time.Duration
	ParseTime time.Duration
	Err       error // set by RunAll; Run returns it directly
}
