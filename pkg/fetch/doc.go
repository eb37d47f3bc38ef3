// Package fetch defines how repository payloads are obtained from upstream.
//
// A [Fetcher] downloads one source's raw index data into a staging
// generation of a [transact.Store]. It either reports that nothing changed
// or hands back the staging handle, leaving the decision to commit to the
// caller:
//
//	out, err := fetcher.Fetch(ctx, dir, client)
//	if err != nil {
//	    return err
//	}
//	if out.Updated() {
//	    if err := out.Staging.Commit(); err != nil {
//	        return err
//	    }
//	}
//	// parse fetch.StatePath(dir)
//
// Every generation holds the payload under [StateFileName] and a small
// [Metadata] document under [MetadataFileName]; both are committed together.
//
// Concrete fetchers live in subpackages (file, repodata, git). The fetchers
// subpackage maps their symbolic names to constructors.
package fetch
