package wal

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/davidvella/lsmerge/recordio"
	"github.com/davidvella/lsmerge/statement"
)

var (
	ErrInvalidMaxStatements = errors.New("wal: maxStatements must be greater than 0")
	ErrWALClosed            = errors.New("wal: already closed")
)

// Writer appends statements to a log. Statements accumulate in a
// btree-sorted segment; once a segment holds maxStatements it is flushed
// with a length prefix, so readers can replay segments independently and
// merge them back into (key, LSN) order.
type Writer struct {
	writer         recordio.BinaryWriter
	currentOffset  atomic.Int64
	currentSegment atomic.Pointer[segment]
	cmp            statement.Comparator
	maxStatements  int
	closed         atomic.Bool
	wc             io.WriteCloser
	mu             sync.Mutex
}

type segment struct {
	statements *btree.BTreeG[*statement.Statement]
	offset     int64
	length     int64
}

// NewWriter wraps wc. A nil cmp means bytewise key order.
func NewWriter(wc io.WriteCloser, cmp statement.Comparator, maxStatements int) (*Writer, error) {
	if maxStatements <= 0 {
		return nil, ErrInvalidMaxStatements
	}
	if cmp == nil {
		cmp = statement.DefaultComparator
	}

	w := &Writer{
		writer:        recordio.NewBinaryWriter(wc),
		cmp:           cmp,
		maxStatements: maxStatements,
		wc:            wc,
	}

	w.newSegment()

	return w, nil
}

func (w *Writer) newSegment() {
	cmp := w.cmp
	seg := &segment{
		statements: btree.NewG[*statement.Statement](2, func(a, b *statement.Statement) bool {
			return statement.Less(cmp, a, b)
		}),
	}
	w.currentSegment.Store(seg)
}

// Write appends one statement. A statement with the same (key, LSN) as an
// unflushed one replaces it.
func (w *Writer) Write(stmt *statement.Statement) error {
	if w.closed.Load() {
		return ErrWALClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seg := w.currentSegment.Load()
	seg.statements.ReplaceOrInsert(stmt)

	if seg.statements.Len() >= w.maxStatements {
		if err := w.flushSegment(seg.statements); err != nil {
			return err
		}
		w.newSegment()
	}

	return nil
}

func (w *Writer) flushSegment(s *btree.BTreeG[*statement.Statement]) error {
	var totalSize = recordio.Int64Size

	s.Ascend(func(stmt *statement.Statement) bool {
		totalSize += recordio.Size(stmt)
		return true
	})

	if _, err := w.writer.WriteInt64(totalSize); err != nil {
		return err
	}

	var writeErr error
	s.Ascend(func(stmt *statement.Statement) bool {
		if _, err := recordio.Write(w.wc, stmt); err != nil {
			writeErr = err
			return false
		}
		return true
	})

	if writeErr != nil {
		return writeErr
	}

	w.currentOffset.Add(totalSize)
	return nil
}

// Close flushes the open segment and closes the underlying writer.
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return ErrWALClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seg := w.currentSegment.Load()
	if seg.statements.Len() > 0 {
		if err := w.flushSegment(seg.statements); err != nil {
			return err
		}
	}

	return w.wc.Close()
}
