// Package transact provides atomic, crash-safe replacement of a directory.
//
// A [Store] manages one path. The path is a symbolic link to a sibling
// generation directory named "<path>.gen-<uuid>". Writers populate a fresh
// generation through a [Staging] handle and publish it with [Staging.Commit],
// which renames a new link over the old one. A reader resolving the path at
// any instant sees either the complete previous generation or the complete
// new one.
//
// No in-process lock is involved. Commit does not delete the superseded
// generation, so a reader that resolved the link before the swap can finish
// with it. Superseded generations and those orphaned by interrupted writers
// are reclaimed by [Store.Cleanup], which never touches the committed
// generation. Writers call Cleanup before Begin.
//
//	store := transact.New("/var/lib/repotrack/freebsd")
//	if err := store.Cleanup(); err != nil {
//	    return err
//	}
//	staging, err := store.Begin()
//	if err != nil {
//	    return err
//	}
//	// write files under staging.Path()
//	return staging.Commit()
package transact
