// Package wal implements a write-ahead log for the in-memory statement
// buffer.
//
// Statements are written sequentially to disk before they are considered
// committed. The log is organized into segments; within a segment
// statements are kept in (key, LSN) order, and reading the log back
// merges all segments through a loser tree so the replayed stream is
// globally ordered and can seed a fresh memtable.
//
// Basic usage:
//
//	file, _ := os.Create("buffer.wal")
//
//	// Segments rotate after 1000 statements.
//	writer, err := wal.NewWriter(file, nil, 1000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = writer.Write(stmt)
//	_ = writer.Close()
//
//	// Replay after a restart.
//	file, _ = os.Open("buffer.wal")
//	reader := wal.NewReader(file, nil)
//	table := memtable.New(nil)
//	if err := reader.Replay(table.Insert); err != nil {
//	    log.Fatal(err)
//	}
//
// File format: each segment is a total-size prefix (8 bytes) followed by
// a series of variable-length statement frames.
package wal
