// Package pkg provides the libraries behind repotrack, a package repository
// index ingestion pipeline.
//
// # Overview
//
// Repotrack polls the package indexes of software repositories (FreeBSD
// ports, RPM repositories, distribution JSON dumps, git trees of package
// manifests) and turns each one into a stream of normalized package
// records. The pkg directory is organized into these areas:
//
//  1. [transact] and [compression] - durable on-disk state and payload decoding
//  2. [fetch] - fetchers that refresh a source's committed payload
//  3. [parse] - the package record builder, sinks, and one parser per format
//  4. [pipeline] - the per-source fetch, commit, parse cycle
//  5. [config], [options], [errors], [observability], [httputil] - shared plumbing
//
// # Architecture
//
// One ingestion cycle for a source:
//
//	upstream repository
//	         ↓
//	    [fetch] Fetcher (conditional transfer into a staging area)
//	         ↓
//	    [transact] Staging.Commit (atomic replace of the committed path)
//	         ↓
//	    [parse] Parser (payload → Builder per entry)
//	         ↓
//	    [parse] Sink (finalized Record per entry)
//
// A failed fetch or parse never damages the committed payload: the previous
// generation stays readable until a new one is committed.
//
// # Quick Start
//
// Fetch and parse one FreeBSD INDEX:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/repotrack/pkg/fetch/fetchers"
//	    "github.com/matzehuels/repotrack/pkg/parse"
//	    "github.com/matzehuels/repotrack/pkg/parse/parsers"
//	    "github.com/matzehuels/repotrack/pkg/pipeline"
//	)
//
//	f, _ := fetchers.Create("FileFetcher", []byte("url: https://example.org/INDEX-14.bz2\ncompression: bz2"))
//	p, _ := parsers.Create("FreeBsdParser", nil)
//
//	var records parse.Accumulator
//	runner := pipeline.NewRunner(nil, nil)
//	res, err := runner.Run(context.Background(), pipeline.Source{
//	    Name:    "freebsd",
//	    Fetcher: f,
//	    Parser:  p,
//	    Dir:     "/var/lib/repotrack/freebsd",
//	}, &records)
//
// # Error Handling
//
// Errors carry a [errors.Code] so callers can tell configuration problems
// (INVALID_FETCHER, INVALID_PARSER, INVALID_OPTIONS) from transient network
// failures and malformed payloads:
//
//	if errors.IsConfig(err) {
//	    // fix the sources file; retrying will not help
//	}
//
// [transact]: github.com/matzehuels/repotrack/pkg/transact
// [compression]: github.com/matzehuels/repotrack/pkg/compression
// [fetch]: github.com/matzehuels/repotrack/pkg/fetch
// [parse]: github.com/matzehuels/repotrack/pkg/parse
// [pipeline]: github.com/matzehuels/repotrack/pkg/pipeline
// [config]: github.com/matzehuels/repotrack/pkg/config
// [options]: github.com/matzehuels/repotrack/pkg/options
// [errors]: github.com/matzehuels/repotrack/pkg/errors
// [observability]: github.com/matzehuels/repotrack/pkg/observability
// [httputil]: github.com/matzehuels/repotrack/pkg/httputil
package pkg
