// Package compactor glues the merge engine to the run format: it merges
// multiple statement sources into a single compacted run file.
//
// The compaction process:
//   - Merges the sources into one stream, keys ascending and LSNs
//     descending within a key
//   - Drops history no open read view can see, squashes UPSERT chains and
//     prunes redundant DELETEs
//   - Writes the surviving statements to an indexed run file
//
// Basic usage:
//
//	file, err := os.Create("l2-000042.run")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	cur1, _ := oldRun1.Cursor()
//	cur2, _ := oldRun2.Cursor()
//
//	stats, err := compactor.Compact(file, mergeiter.Options{
//	    IsPrimary:   true,
//	    IsLastLevel: true,
//	    ReadViews:   openViews,
//	}, cur1, cur2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("compacted %d statements into %d", stats.StatementsIn, stats.StatementsOut)
//
// Memory usage is bounded by the largest single-key history, not by the
// total input size.
package compactor
