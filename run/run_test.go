package run_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/lsmerge/run"
	"github.com/davidvella/lsmerge/source"
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

func drain(t *testing.T, cur source.Cursor) []*statement.Statement {
	t.Helper()
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

func buildRun(t *testing.T, opts *run.Options, stmts ...*statement.Statement) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := run.OpenWriter(&buf, opts)
	require.NoError(t, err)
	for _, s := range stmts {
		require.NoError(t, w.Add(s))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRun_RoundTrip(t *testing.T) {
	flagged := stmt("b", 9, "b9")
	flagged.DeferredDelete = true

	// Compaction output order: keys ascending, LSNs descending per key.
	raw := buildRun(t, nil,
		stmt("a", 7, "a7"),
		flagged,
		stmt("b", 5, "b5"),
		stmt("c", 3, "c3"),
	)

	r, err := run.OpenReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)
	cur, err := r.Cursor()
	require.NoError(t, err)

	// Cursors present each key's versions oldest first.
	assert.Equal(t, []*statement.Statement{
		stmt("a", 7, "a7"),
		stmt("b", 5, "b5"),
		flagged,
		stmt("c", 3, "c3"),
	}, drain(t, cur))

	require.NoError(t, cur.Close())
	require.NoError(t, r.Close())
}

func TestRun_ManyBlocks(t *testing.T) {
	var stmts []*statement.Statement
	for i := 0; i < 500; i++ {
		stmts = append(stmts, stmt(fmt.Sprintf("key-%04d", i), 1, "payload payload payload"))
	}

	raw := buildRun(t, &run.Options{BlockSize: 64}, stmts...)

	r, err := run.OpenReader(bytes.NewReader(raw), &run.Options{BlockSize: 64})
	require.NoError(t, err)
	cur, err := r.Cursor()
	require.NoError(t, err)

	assert.Equal(t, stmts, drain(t, cur))
}

func TestWriter_OutOfOrder(t *testing.T) {
	tests := []struct {
		name   string
		first  *statement.Statement
		second *statement.Statement
	}{
		{
			name:   "keys descending",
			first:  stmt("b", 1, "v"),
			second: stmt("a", 2, "v"),
		},
		{
			name:   "lsns ascending within a key",
			first:  stmt("a", 1, "v"),
			second: stmt("a", 2, "v"),
		},
		{
			name:   "duplicate version",
			first:  stmt("a", 1, "v"),
			second: stmt("a", 1, "v"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := run.OpenWriter(&buf, nil)
			require.NoError(t, err)

			require.NoError(t, w.Add(tt.first))
			assert.ErrorIs(t, w.Add(tt.second), run.ErrOutOfOrder)
		})
	}
}

func TestWriter_Closed(t *testing.T) {
	var buf bytes.Buffer
	w, err := run.OpenWriter(&buf, nil)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Add(stmt("a", 1, "v")), run.ErrRunClosed)
	require.NoError(t, w.Close())
}

func TestRun_Empty(t *testing.T) {
	raw := buildRun(t, nil)

	r, err := run.OpenReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)
	cur, err := r.Cursor()
	require.NoError(t, err)

	assert.Empty(t, drain(t, cur))
}

func TestOpenReader_Errors(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		_, err := run.OpenReader(bytes.NewReader(nil), nil)
		assert.ErrorIs(t, err, run.ErrEmptyRun)
	})

	t.Run("bad header magic", func(t *testing.T) {
		_, err := run.OpenReader(bytes.NewReader(make([]byte, 64)), nil)
		assert.ErrorIs(t, err, run.ErrCorruptedRun)
	})

	t.Run("bad footer magic", func(t *testing.T) {
		raw := buildRun(t, nil, stmt("a", 1, "v"))
		for i := len(raw) - 8; i < len(raw); i++ {
			raw[i] = 0xFF
		}
		_, err := run.OpenReader(bytes.NewReader(raw), nil)
		assert.ErrorIs(t, err, run.ErrCorruptedRun)
	})
}

func TestReader_Closed(t *testing.T) {
	raw := buildRun(t, nil, stmt("a", 1, "v"))

	r, err := run.OpenReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Cursor()
	assert.ErrorIs(t, err, run.ErrRunClosed)
}

func TestCursor_Closed(t *testing.T) {
	raw := buildRun(t, nil, stmt("a", 1, "v"))

	r, err := run.OpenReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)
	cur, err := r.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Close())

	_, err = cur.Peek()
	assert.ErrorIs(t, err, run.ErrRunClosed)
	assert.ErrorIs(t, cur.Advance(), run.ErrRunClosed)
}
