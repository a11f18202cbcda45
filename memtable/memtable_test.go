package memtable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/lsmerge/memtable"
	"github.com/davidvella/lsmerge/recordio"
	"github.com/davidvella/lsmerge/statement"
)

func stmt(key string, lsn uint64, val string) *statement.Statement {
	return &statement.Statement{
		Key:   []byte(key),
		LSN:   lsn,
		Kind:  statement.Replace,
		Value: []byte(val),
	}
}

func drain(t *testing.T, table *memtable.Table) []*statement.Statement {
	t.Helper()
	cur := table.Cursor()
	var out []*statement.Statement
	for {
		s, err := cur.Peek()
		require.NoError(t, err)
		if s == nil {
			return out
		}
		out = append(out, s)
		require.NoError(t, cur.Advance())
	}
}

func TestTable_OrdersByKeyThenLSN(t *testing.T) {
	table := memtable.New(nil)

	require.NoError(t, table.Insert(stmt("b", 2, "b2")))
	require.NoError(t, table.Insert(stmt("a", 9, "a9")))
	require.NoError(t, table.Insert(stmt("b", 1, "b1")))
	require.NoError(t, table.Insert(stmt("a", 3, "a3")))

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []*statement.Statement{
		stmt("a", 3, "a3"),
		stmt("a", 9, "a9"),
		stmt("b", 1, "b1"),
		stmt("b", 2, "b2"),
	}, drain(t, table))
}

func TestTable_ReplacesSameVersion(t *testing.T) {
	table := memtable.New(nil)

	require.NoError(t, table.Insert(stmt("a", 1, "old")))
	require.NoError(t, table.Insert(stmt("a", 1, "new")))

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []*statement.Statement{stmt("a", 1, "new")}, drain(t, table))
}

func TestTable_Size(t *testing.T) {
	table := memtable.New(nil)
	assert.Zero(t, table.Size())

	s := stmt("a", 1, "value")
	require.NoError(t, table.Insert(s))
	assert.Equal(t, recordio.Size(s), table.Size())

	// Replacing swaps the accounted size rather than adding to it.
	bigger := stmt("a", 1, "a much longer value")
	require.NoError(t, table.Insert(bigger))
	assert.Equal(t, recordio.Size(bigger), table.Size())
}

func TestTable_CursorIsSnapshot(t *testing.T) {
	table := memtable.New(nil)
	require.NoError(t, table.Insert(stmt("a", 1, "a1")))

	cur := table.Cursor()
	require.NoError(t, table.Insert(stmt("b", 2, "b2")))

	var seen int
	for {
		s, err := cur.Peek()
		require.NoError(t, err)
		if s == nil {
			break
		}
		seen++
		require.NoError(t, cur.Advance())
	}
	assert.Equal(t, 1, seen)
}

func TestTable_InsertNil(t *testing.T) {
	table := memtable.New(nil)
	assert.ErrorIs(t, table.Insert(nil), memtable.ErrNilStatement)
}
