package compactor

import (
	"fmt"
	"io"

	"github.com/davidvella/lsmerge/handler"
	"github.com/davidvella/lsmerge/mergeiter"
	"github.com/davidvella/lsmerge/run"
	"github.com/davidvella/lsmerge/source"
	"github.com/davidvella/lsmerge/statement"
)

// Stats summarizes one compaction.
type Stats struct {
	// StatementsIn counts statements consumed from the sources.
	StatementsIn int
	// StatementsOut counts statements written to the output run.
	StatementsOut int
	// DeferredDeletes counts notifications handed to the handler.
	DeferredDeletes int
}

// Compact performs a streaming compaction: the sources are merged through
// the merge engine and the surviving statements are written to w as a run.
// The sources are closed before Compact returns, even on error.
func Compact(w io.Writer, opts mergeiter.Options, sources ...source.Cursor) (stats Stats, err error) {
	wrapped := make([]source.Cursor, len(sources))
	for i, src := range sources {
		wrapped[i] = &countingCursor{Cursor: src, n: &stats.StatementsIn}
	}
	if opts.Handler != nil {
		opts.Handler = &countingHandler{Handler: opts.Handler, n: &stats.DeferredDeletes}
	}

	it := mergeiter.New(opts, wrapped...)
	defer func() {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := it.Start(); err != nil {
		return stats, err
	}

	out, err := run.OpenWriter(w, &run.Options{Comparator: opts.Comparator})
	if err != nil {
		return stats, fmt.Errorf("compactor: failed to open output run: %w", err)
	}

	for {
		stmt, err := it.Next()
		if err != nil {
			return stats, err
		}
		if stmt == nil {
			break
		}
		if err := out.Add(stmt); err != nil {
			return stats, fmt.Errorf("compactor: failed to write statement: %w", err)
		}
		stats.StatementsOut++
	}

	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("compactor: failed to finish run: %w", err)
	}

	return stats, nil
}

// countingCursor counts statements as the merge consumes them.
type countingCursor struct {
	source.Cursor
	n *int
}

func (c *countingCursor) Advance() error {
	if err := c.Cursor.Advance(); err != nil {
		return err
	}
	*c.n++
	return nil
}

// countingHandler counts deferred DELETE notifications on their way to the
// real handler.
type countingHandler struct {
	handler.Handler
	n *int
}

func (h *countingHandler) Process(oldStmt, newStmt *statement.Statement) error {
	if err := h.Handler.Process(oldStmt, newStmt); err != nil {
		return err
	}
	*h.n++
	return nil
}
