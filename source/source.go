package source

import (
	"errors"

	"github.com/davidvella/lsmerge/statement"
)

var ErrClosed = errors.New("source: cursor already closed")

// Cursor walks one merge input. Statements come out with keys
// non-decreasing and, within one key, LSNs strictly increasing.
//
// Peek returns the current statement without consuming it, or (nil, nil)
// once the input is exhausted. Advance consumes it. Any error is fatal to
// the cursor and surfaces verbatim from both methods.
type Cursor interface {
	Peek() (*statement.Statement, error)
	Advance() error
	Close() error
}

// Slice is a Cursor over an already ordered in-memory slice. It backs
// memtable snapshots and test fixtures.
type Slice struct {
	stmts  []*statement.Statement
	pos    int
	closed bool
}

// NewSlice wraps stmts without copying; the caller must not mutate the
// slice afterwards.
func NewSlice(stmts []*statement.Statement) *Slice {
	return &Slice{stmts: stmts}
}

func (s *Slice) Peek() (*statement.Statement, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.pos >= len(s.stmts) {
		return nil, nil
	}
	return s.stmts[s.pos], nil
}

func (s *Slice) Advance() error {
	if s.closed {
		return ErrClosed
	}
	if s.pos < len(s.stmts) {
		s.pos++
	}
	return nil
}

func (s *Slice) Close() error {
	s.closed = true
	s.stmts = nil
	return nil
}
