package mergeiter

import (
	"fmt"
	"slices"
	"sort"

	"github.com/davidvella/lsmerge/statement"
)

// reduceKey turns one key's full ascending-LSN history into the compacted
// output for that key, newest first.
func (it *Iterator) reduceKey(hist []*statement.Statement) ([]*statement.Statement, error) {
	preserved, err := it.deferDeletes(hist)
	if err != nil {
		return nil, err
	}

	selected := it.selectRetained(hist)

	// The row is known absent underneath this merge when nothing is below
	// it, or when its own history starts with an INSERT.
	absentBelow := it.opts.IsLastLevel || hist[0].Kind == statement.Insert

	out := make([]*statement.Statement, 0, len(selected)+1)
	if preserved != nil && (len(selected) == 0 || selected[0] != 0) {
		out = append(out, preserved.Clone())
	}

	prevSel := -1
	for _, idx := range selected {
		s := hist[idx]
		keepFlag := s == preserved

		switch s.Kind {
		case statement.Delete:
			redundant := false
			if len(out) == 0 {
				redundant = absentBelow
			} else {
				redundant = out[len(out)-1].Kind == statement.Delete
			}
			if redundant && !keepFlag {
				it.opts.Metrics.TombstonesPruned(1)
				prevSel = idx
				continue
			}
			out = append(out, it.emit(s, keepFlag))

		case statement.Upsert:
			stmt, err := it.squash(hist, idx, prevSel, out, absentBelow)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt)

		default:
			out = append(out, it.emit(s, keepFlag))
		}
		prevSel = idx
	}

	out = it.normalizeOldest(hist, out)

	slices.Reverse(out)
	it.opts.Metrics.StatementsEmitted(len(out))
	return out, nil
}

func (it *Iterator) deferring() bool {
	return it.opts.IsPrimary && it.opts.Handler != nil
}

// deferDeletes runs the deferred-delete pass over an ascending history:
// each flagged statement silently overwrote its immediate predecessor, and
// that predecessor's row image is handed to the handler. A flagged
// statement with no predecessor in this merge keeps its flag for a deeper
// merge to discharge, unless this is the last level and there is nothing
// deeper.
func (it *Iterator) deferDeletes(hist []*statement.Statement) (*statement.Statement, error) {
	if !it.deferring() {
		return nil, nil
	}

	var preserved *statement.Statement
	for i := len(hist) - 1; i >= 0; i-- {
		s := hist[i]
		if !s.DeferredDelete {
			continue
		}
		if s.Kind == statement.Upsert {
			return nil, ErrUpsertDeferred
		}
		if i == 0 {
			if !it.opts.IsLastLevel {
				preserved = s
			}
			continue
		}

		old := hist[i-1]
		switch old.Kind {
		case statement.Delete:
			// The row was already gone; nothing for secondary indexes to drop.
		case statement.Upsert:
			return nil, ErrUpsertDeferred
		default:
			if err := it.opts.Handler.Process(old, s); err != nil {
				return nil, fmt.Errorf("mergeiter: deferred delete: %w", err)
			}
			it.opts.Metrics.DeferredDeletes(1)
		}
	}
	return preserved, nil
}

// selectRetained picks the statement visible at each retention point: every
// read view at or below the newest LSN, then the newest statement itself.
// Views that land on the same statement collapse. Indices come back
// ascending and distinct.
func (it *Iterator) selectRetained(hist []*statement.Statement) []int {
	tip := hist[len(hist)-1].LSN

	selected := make([]int, 0, len(it.views)+1)
	last := -1
	for _, v := range it.views {
		if v > tip {
			break
		}
		idx := sort.Search(len(hist), func(i int) bool { return hist[i].LSN > v }) - 1
		if idx >= 0 && idx != last {
			selected = append(selected, idx)
			last = idx
		}
	}
	if last != len(hist)-1 {
		selected = append(selected, len(hist)-1)
	}
	return selected
}

// squash resolves a selected UPSERT. Unselected UPSERTs directly beneath it
// belong to the same retention interval and fold into it oldest to newest;
// when the row value underneath the chain is known the composed program
// evaluates down to a REPLACE at the selected LSN.
func (it *Iterator) squash(hist []*statement.Statement, idx, prevSel int, out []*statement.Statement, absentBelow bool) (*statement.Statement, error) {
	if it.opts.Algebra == nil {
		return nil, ErrNoAlgebra
	}

	start := idx
	for start-1 > prevSel && hist[start-1].Kind == statement.Upsert {
		start--
	}

	program := hist[start].Value
	for i := start + 1; i <= idx; i++ {
		p, err := it.opts.Algebra.Compose(program, hist[i].Value)
		if err != nil {
			return nil, fmt.Errorf("mergeiter: compose upserts: %w", err)
		}
		program = p
	}
	it.opts.Metrics.UpsertsSquashed(idx - start)

	s := hist[idx]

	// The statement underneath the chain: an unselected non-UPSERT still in
	// this retention interval, otherwise whatever was last emitted.
	var base *statement.Statement
	switch {
	case start-1 > prevSel:
		base = hist[start-1]
	case len(out) > 0:
		base = out[len(out)-1]
	}

	if base == nil {
		if absentBelow {
			return it.evaluate(s, nil, program)
		}
		// The row may exist below this merge with an unknown value.
		return it.emitUpsert(s, program), nil
	}

	switch base.Kind {
	case statement.Upsert:
		// Base is itself unresolved, so the composed program stays one too.
		return it.emitUpsert(s, program), nil
	case statement.Delete:
		return it.evaluate(s, nil, program)
	default:
		return it.evaluate(s, base.Value, program)
	}
}

// evaluate applies a composed program over a known row value (nil when the
// row is absent), producing a plain REPLACE.
func (it *Iterator) evaluate(s *statement.Statement, base, program []byte) (*statement.Statement, error) {
	value, err := it.opts.Algebra.Apply(base, program)
	if err != nil {
		return nil, fmt.Errorf("mergeiter: apply upsert: %w", err)
	}
	return &statement.Statement{
		Key:   s.Key,
		LSN:   s.LSN,
		Kind:  statement.Replace,
		Value: value,
	}, nil
}

func (it *Iterator) emitUpsert(s *statement.Statement, program []byte) *statement.Statement {
	c := it.emit(s, false)
	c.Value = program
	return c
}

// emit clones a surviving statement. On a deferred-delete merge every copy
// but the preserved oldest has had its flag discharged by the notification
// pass.
func (it *Iterator) emit(s *statement.Statement, keepFlag bool) *statement.Statement {
	c := s.Clone()
	if it.deferring() {
		c.DeferredDelete = keepFlag
	}
	return c
}

// normalizeOldest retags the oldest surviving statement to match what is
// underneath the output. A history rooted at an INSERT means the row did
// not exist before it: leading DELETEs are dead and the oldest REPLACE
// becomes an INSERT again. Any other root means the row may exist below,
// and an INSERT sitting on top of it must weaken to a REPLACE.
func (it *Iterator) normalizeOldest(hist, out []*statement.Statement) []*statement.Statement {
	if hist[0].Kind == statement.Insert {
		for len(out) > 0 && out[0].Kind == statement.Delete {
			it.opts.Metrics.TombstonesPruned(1)
			out = out[1:]
		}
		if len(out) > 0 && out[0].Kind == statement.Replace {
			out[0] = out[0].WithKind(statement.Insert)
		}
		return out
	}
	if len(out) > 0 && out[0].Kind == statement.Insert {
		out[0] = out[0].WithKind(statement.Replace)
	}
	return out
}
