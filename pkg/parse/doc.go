// Package parse turns committed repository payloads into normalized
// package records.
//
// # Overview
//
// A [Parser] reads one payload (a file or a directory tree, depending on
// the upstream format) and, for every package entry it discovers, fills a
// [Builder] and pushes it to a [Sink]. The sink finalizes the builder,
// which validates the required fields and yields a [Record]:
//
//	var acc parse.Accumulator
//	if err := parser.Parse(fetch.StatePath(dir), &acc); err != nil {
//	    // records pushed before the error are still in acc.Records
//	}
//
// # Validation
//
// [Builder.Finalize] checks, in this order, that the project name seed was
// set and is non-empty, then that the version was set and is non-empty.
// Everything else passes through unvalidated.
//
// # Sinks
//
// Sinks compose: [Counter] wraps another sink, [Accumulator] keeps records
// in memory, [NullSink] validates and discards, [Dumper] writes YAML for
// debugging, and [SinkFunc] adapts a plain function.
//
// Concrete parsers live in subpackages (freebsd, stalix, tincan, yacp,
// repodata); the parsers subpackage maps their names to constructors.
package parse
