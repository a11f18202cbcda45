package mergeiter

import (
	"errors"
	"fmt"

	"github.com/davidvella/lsmerge/priority"
	"github.com/davidvella/lsmerge/source"
	"github.com/davidvella/lsmerge/statement"
)

// Iterator merges statement sources into one compacted stream. Pull it
// with Next after Start; a nil statement with a nil error marks the end.
type Iterator struct {
	opts    Options
	views   []uint64
	sources []source.Cursor

	// heads orders the sources by their next statement; the key is the
	// source's position in sources.
	heads *priority.Queue[int, *statement.Statement]

	out     []*statement.Statement // current key's output, newest first
	outPos  int
	started bool
	stopped bool
	closed  bool
	err     error
}

// New builds an iterator over the given sources. The sources are owned by
// the iterator from here on and are closed by Close.
func New(opts Options, sources ...source.Cursor) *Iterator {
	if opts.Comparator == nil {
		opts.Comparator = statement.DefaultComparator
	}
	return &Iterator{
		opts:    opts,
		views:   normalizeReadViews(opts.ReadViews),
		sources: sources,
	}
}

// Start validates the options and positions the merge at the first key.
func (it *Iterator) Start() error {
	if it.closed {
		return ErrClosed
	}
	if it.started {
		return nil
	}
	if err := it.opts.validate(); err != nil {
		return err
	}

	it.heads = priority.NewQueue[int, *statement.Statement](func(a, b *statement.Statement) bool {
		return statement.Less(it.opts.Comparator, a, b)
	})
	for i, src := range it.sources {
		stmt, err := src.Peek()
		if err != nil {
			return it.fail(fmt.Errorf("mergeiter: source %d: %w", i, err))
		}
		if stmt != nil {
			it.heads.Set(i, stmt)
		}
	}

	it.started = true
	return nil
}

// Next returns the next statement of the compacted stream, or (nil, nil)
// once the stream is exhausted. Errors are sticky.
func (it *Iterator) Next() (*statement.Statement, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.closed {
		return nil, ErrClosed
	}
	if !it.started {
		return nil, ErrNotStarted
	}
	if it.stopped {
		return nil, nil
	}

	// Reduction can erase a key entirely, so keep pulling until a key
	// yields output or the sources run dry.
	for it.outPos >= len(it.out) {
		if it.heads.Len() == 0 {
			return nil, nil
		}

		hist, err := it.collectKey()
		if err != nil {
			return nil, it.fail(err)
		}

		out, err := it.reduceKey(hist)
		if err != nil {
			return nil, it.fail(err)
		}

		it.out = out
		it.outPos = 0
	}

	stmt := it.out[it.outPos]
	it.outPos++
	return stmt, nil
}

// collectKey drains every source statement for the smallest pending key,
// returning them in ascending LSN order.
func (it *Iterator) collectKey() ([]*statement.Statement, error) {
	_, top, _ := it.heads.Peek()
	key := top.Key

	var hist []*statement.Statement
	for it.heads.Len() > 0 {
		i, stmt, _ := it.heads.Peek()
		if it.opts.Comparator(stmt.Key, key) != 0 {
			break
		}
		hist = append(hist, stmt)

		if err := it.sources[i].Advance(); err != nil {
			return nil, fmt.Errorf("mergeiter: source %d: %w", i, err)
		}
		next, err := it.sources[i].Peek()
		if err != nil {
			return nil, fmt.Errorf("mergeiter: source %d: %w", i, err)
		}
		if next == nil {
			it.heads.Remove(i)
		} else {
			it.heads.Set(i, next)
		}
	}

	it.opts.Metrics.StatementsRead(len(hist))
	return hist, nil
}

// Stop ends the merge early, discarding any buffered output. The sources
// stay open until Close.
func (it *Iterator) Stop() {
	it.stopped = true
	it.out = nil
	it.outPos = 0
}

// Close releases the sources and the handler. Safe to call more than once.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.out = nil
	it.heads = nil

	var errs []error
	for i, src := range it.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mergeiter: close source %d: %w", i, err))
		}
	}
	if it.opts.Handler != nil {
		it.opts.Handler.Destroy()
	}
	return errors.Join(errs...)
}

func (it *Iterator) fail(err error) error {
	it.err = err
	return err
}
