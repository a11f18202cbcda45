package wal

import (
	"errors"
	"io"
	"iter"

	"github.com/davidvella/lsmerge/loser"
	"github.com/davidvella/lsmerge/recordio"
	"github.com/davidvella/lsmerge/statement"
)

// Reader replays a log. Segments are discovered from their length
// prefixes and merged through a loser tree back into one (key, LSN)
// ordered stream.
type Reader struct {
	r        io.ReaderAt
	cmp      statement.Comparator
	segments []*segment
	err      error
}

// NewReader wraps r. A nil cmp means bytewise key order.
func NewReader(r io.ReaderAt, cmp statement.Comparator) *Reader {
	if cmp == nil {
		cmp = statement.DefaultComparator
	}
	return &Reader{
		r:   r,
		cmp: cmp,
	}
}

// All yields every logged statement in (key, LSN) order. Check Err once
// iteration finishes; a read failure ends the stream early.
func (r *Reader) All() iter.Seq[*statement.Statement] {
	if err := r.readExistingSegments(); err != nil {
		r.err = err
		return func(func(*statement.Statement) bool) {}
	}

	sequences := make([]loser.Sequence[*statement.Statement], 0, len(r.segments))

	for _, seg := range r.segments {
		sequences = append(sequences, &segmentReader{
			owner:  r,
			offset: seg.offset,
			length: seg.length,
		})
	}

	cmp := r.cmp
	tree := loser.New(sequences, statement.Max, func(a, b *statement.Statement) bool {
		return statement.Less(cmp, a, b)
	})
	return tree.All()
}

// Err reports the first failure hit while reading the log.
func (r *Reader) Err() error { return r.err }

// Replay loads every logged statement into the given sink, typically a
// memtable being rebuilt after a restart.
func (r *Reader) Replay(insert func(*statement.Statement) error) error {
	for stmt := range r.All() {
		if err := insert(stmt); err != nil {
			return err
		}
	}
	return r.err
}

func (r *Reader) readExistingSegments() error {
	r.segments = nil
	offset := int64(0)
	for {
		reader := io.NewSectionReader(r.r, offset, recordio.Int64Size)
		seg, err := readSegmentHeader(reader, offset)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		r.segments = append(r.segments, seg)
		offset += seg.length
	}
	return nil
}

func readSegmentHeader(r io.Reader, offset int64) (*segment, error) {
	br := recordio.NewBinaryReader(r)
	l, err := br.ReadInt64()
	if err != nil {
		return nil, err
	}

	return &segment{
		offset: offset,
		length: l,
	}, nil
}

type segmentReader struct {
	owner  *Reader
	offset int64
	length int64
}

func (sr *segmentReader) All() iter.Seq[*statement.Statement] {
	return func(yield func(*statement.Statement) bool) {
		reader := io.NewSectionReader(sr.owner.r, sr.offset+recordio.Int64Size, sr.length-recordio.Int64Size)
		for {
			stmt, err := recordio.ReadStatement(reader)
			if err != nil {
				if !errors.Is(err, io.EOF) && sr.owner.err == nil {
					sr.owner.err = err
				}
				return
			}
			if !yield(stmt) {
				return
			}
		}
	}
}
