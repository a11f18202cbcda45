// Package mergeiter implements the compaction merge engine of an LSM
// store: it merges several overlapping, (key, LSN)-sorted statement
// sources into a single compacted stream, keys ascending and LSNs
// descending within each key.
//
// For every key the engine gathers the full ascending-LSN history across
// all sources and reduces it against the active read views. One
// statement survives per retention point: each read-view LSN at or below
// the newest statement, plus the newest statement itself; read views
// that would select the same statement collapse into one. On top of the
// retention skeleton the engine applies the multi-version rules that
// make compaction safe:
//
//   - UPSERT chains between retention points are squashed through the
//     caller's update algebra, oldest to newest, and evaluate to REPLACE
//     whenever the base row value underneath them is known.
//   - A DELETE is dropped when the statement beneath it in the output is
//     already a DELETE, or when nothing is beneath it and the row is
//     known absent below this merge (the last level, or a history rooted
//     at an INSERT).
//   - The oldest surviving statement is retagged so its kind matches
//     what is actually beneath the output: INSERT when the history is
//     rooted at an INSERT, REPLACE otherwise.
//   - On the primary index, a statement carrying the deferred-delete
//     flag pairs with its immediate predecessor: overwriting a row image
//     without an explicit DELETE produces exactly one notification to
//     the deferred-delete handler, which manufactures the surrogate
//     DELETE secondary indexes need.
//
// The result is pulled one statement at a time:
//
//	it := mergeiter.New(mergeiter.Options{
//	    IsLastLevel: true,
//	    ReadViews:   []uint64{42, 97},
//	}, sources...)
//	if err := it.Start(); err != nil {
//	    return err
//	}
//	defer it.Close()
//	for {
//	    stmt, err := it.Next()
//	    if err != nil {
//	        return err
//	    }
//	    if stmt == nil {
//	        break
//	    }
//	    // write stmt to the output run
//	}
//
// The iterator is single-threaded and not reentrant. Every failure
// (source I/O, algebra, handler) is fatal to the whole merge: no partial
// output is produced for a key, and the error sticks until Close.
package mergeiter
