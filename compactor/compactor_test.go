package compactor_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/lsmerge/compactor"
	"github.com/davidvella/lsmerge/handler"
	"github.com/davidvella/lsmerge/memtable"
	"github.com/davidvella/lsmerge/mergeiter"
	"github.com/davidvella/lsmerge/run"
	"github.com/davidvella/lsmerge/source"
	"github.com/davidvella/lsmerge/statement"
)

func stmt(key string, lsn uint64, kind statement.Kind, val string) *statement.Statement {
	s := &statement.Statement{Key: []byte(key), LSN: lsn, Kind: kind}
	if val != "" {
		s.Value = []byte(val)
	}
	return s
}

func readRun(t *testing.T, raw []byte) []*statement.Statement {
	t.Helper()
	r, err := run.OpenReader(bytes.NewReader(raw), nil)
	require.NoError(t, err)
	cur, err := r.Cursor()
	require.NoError(t, err)

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

func TestCompact(t *testing.T) {
	// Older level as a run file.
	var oldBuf bytes.Buffer
	w, err := run.OpenWriter(&oldBuf, nil)
	require.NoError(t, err)
	require.NoError(t, w.Add(stmt("a", 1, statement.Replace, "a1")))
	require.NoError(t, w.Add(stmt("b", 2, statement.Replace, "b2")))
	require.NoError(t, w.Close())

	oldRun, err := run.OpenReader(bytes.NewReader(oldBuf.Bytes()), nil)
	require.NoError(t, err)
	oldCur, err := oldRun.Cursor()
	require.NoError(t, err)

	// Newer level as a memtable.
	table := memtable.New(nil)
	require.NoError(t, table.Insert(stmt("a", 5, statement.Delete, "")))
	require.NoError(t, table.Insert(stmt("c", 7, statement.Replace, "c7")))

	var out bytes.Buffer
	stats, err := compactor.Compact(&out, mergeiter.Options{
		IsLastLevel: true,
	}, oldCur, table.Cursor())
	require.NoError(t, err)

	// The DELETE annihilates key a entirely on the last level.
	assert.Equal(t, []*statement.Statement{
		stmt("b", 2, statement.Replace, "b2"),
		stmt("c", 7, statement.Replace, "c7"),
	}, readRun(t, out.Bytes()))

	assert.Equal(t, compactor.Stats{
		StatementsIn:  4,
		StatementsOut: 2,
	}, stats)
}

func TestCompact_DeferredDeletes(t *testing.T) {
	overwrite := stmt("a", 8, statement.Replace, "new")
	overwrite.DeferredDelete = true

	collector := &handler.Collector{}
	var out bytes.Buffer
	stats, err := compactor.Compact(&out, mergeiter.Options{
		IsPrimary:   true,
		IsLastLevel: true,
		Handler:     collector,
	}, source.NewSlice([]*statement.Statement{
		stmt("a", 7, statement.Replace, "old"),
		overwrite,
	}))
	require.NoError(t, err)

	assert.Equal(t, compactor.Stats{
		StatementsIn:    2,
		StatementsOut:   1,
		DeferredDeletes: 1,
	}, stats)

	assert.Equal(t, []*statement.Statement{
		stmt("a", 8, statement.Delete, "old"),
	}, collector.Statements())

	assert.Equal(t, []*statement.Statement{
		stmt("a", 8, statement.Replace, "new"),
	}, readRun(t, out.Bytes()))
}

func TestCompact_Empty(t *testing.T) {
	var out bytes.Buffer
	stats, err := compactor.Compact(&out, mergeiter.Options{}, source.NewSlice(nil))
	require.NoError(t, err)
	assert.Zero(t, stats.StatementsOut)

	assert.Empty(t, readRun(t, out.Bytes()))
}

type brokenCursor struct {
	err error
}

func (c *brokenCursor) Peek() (*statement.Statement, error) { return nil, c.err }
func (c *brokenCursor) Advance() error                      { return c.err }
func (c *brokenCursor) Close() error                        { return nil }

func TestCompact_SourceError(t *testing.T) {
	errBroken := errors.New("broken source")

	var out bytes.Buffer
	_, err := compactor.Compact(&out, mergeiter.Options{}, &brokenCursor{err: errBroken})
	assert.ErrorIs(t, err, errBroken)
}

func TestCompact_InvalidOptions(t *testing.T) {
	var out bytes.Buffer
	_, err := compactor.Compact(&out, mergeiter.Options{
		Handler: &handler.Collector{},
	}, source.NewSlice(nil))
	assert.ErrorIs(t, err, mergeiter.ErrHandlerRequired)
}
