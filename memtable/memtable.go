// Package memtable provides the in-memory write buffer side of a merge:
// an ordered index of statements that, once frozen, serves as one of the
// sorted inputs to compaction.
package memtable

import (
	"errors"

	"github.com/google/btree"

	"github.com/davidvella/lsmerge/recordio"
	"github.com/davidvella/lsmerge/source"
	"github.com/davidvella/lsmerge/statement"
)

var ErrNilStatement = errors.New("memtable: nil statement")

// Table is an in-memory buffer of statements ordered by (key, LSN).
// It is not safe for concurrent use; the merge model treats a table as
// frozen for the lifetime of any cursor taken from it.
type Table struct {
	cmp   statement.Comparator
	tree  *btree.BTreeG[*statement.Statement]
	bytes int64
}

// New creates an empty table ordered by cmp; a nil cmp means bytewise
// key order.
func New(cmp statement.Comparator) *Table {
	if cmp == nil {
		cmp = statement.DefaultComparator
	}
	return &Table{
		cmp: cmp,
		tree: btree.NewG[*statement.Statement](2, func(a, b *statement.Statement) bool {
			return statement.Less(cmp, a, b)
		}),
	}
}

// Insert adds a statement to the table. A statement with the same
// (key, LSN) replaces the previous one.
func (t *Table) Insert(stmt *statement.Statement) error {
	if stmt == nil {
		return ErrNilStatement
	}
	if prev, ok := t.tree.ReplaceOrInsert(stmt); ok {
		t.bytes -= recordio.Size(prev)
	}
	t.bytes += recordio.Size(stmt)
	return nil
}

// Len returns the number of statements held.
func (t *Table) Len() int { return t.tree.Len() }

// Size returns the encoded size of the table's contents in bytes.
func (t *Table) Size() int64 { return t.bytes }

// Cursor snapshots the table's current contents as a merge source in
// (key, LSN) order. Later inserts are not observed by the cursor.
func (t *Table) Cursor() source.Cursor {
	stmts := make([]*statement.Statement, 0, t.tree.Len())
	t.tree.Ascend(func(s *statement.Statement) bool {
		stmts = append(stmts, s)
		return true
	})
	return source.NewSlice(stmts)
}
