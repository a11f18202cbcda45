// Package run stores one sorted run of statements: the on-disk input and
// output format of a compaction.
//
// A run holds statements for a key range in compaction output order,
// keys ascending and LSNs descending within a key, so the newest version
// of a row is read first. A sparse index of key-group offsets is written
// behind the data, framed by a magic header and footer, letting a reader
// validate a run and position itself without scanning it.
//
// Merge sources expose ascending LSNs within a key, so the run cursor
// regroups each key and reverses it on the way out.
package run

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/davidvella/lsmerge/recordio"
	"github.com/davidvella/lsmerge/source"
	"github.com/davidvella/lsmerge/statement"
)

// Common errors that can be returned by run operations.
var (
	ErrRunClosed    = errors.New("run: already closed")
	ErrCorruptedRun = errors.New("run: corrupted run data")
	ErrOutOfOrder   = errors.New("run: statements must be added in key order, newest first within a key")
	ErrEmptyRun     = errors.New("run: file is empty or truncated")
)

// File format constants.
const (
	magicHeader   = int64(0x52554E42) // "RUNB"
	magicFooter   = int64(0x454E4442) // "ENDB"
	formatVersion = int64(1)

	defaultBufSize   = 52 * 1024
	defaultBlockSize = 4096
	defaultIndexSize = 1024

	headerSize = int64(16) // magic + version
)

// Options configures a run writer or reader.
type Options struct {
	// Comparator orders keys; nil means bytewise.
	Comparator statement.Comparator

	// BlockSize is the minimum span of data bytes between sparse index
	// entries.
	BlockSize int

	// BufferSize is the size of the read/write buffer.
	BufferSize int
}

func (o *Options) fill() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Comparator == nil {
		opts.Comparator = statement.DefaultComparator
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = defaultBlockSize
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = defaultBufSize
	}
	return opts
}

// sparseIndexEntry marks the offset where a key group starts.
type sparseIndexEntry struct {
	key    []byte
	offset int64
}

// Writer builds a run file.
type Writer struct {
	w           io.Writer
	buf         *bufio.Writer
	bw          recordio.BinaryWriter
	opts        Options
	closed      bool
	sparseIndex []sparseIndexEntry
	last        *statement.Statement
	dataEnd     int64
	blockBytes  int64
}

// OpenWriter initializes a run writer on top of w.
func OpenWriter(w io.Writer, opts *Options) (*Writer, error) {
	if w == nil {
		return nil, errors.New("run: writer cannot be nil")
	}

	buf := bufio.NewWriterSize(w, opts.fill().BufferSize)
	writer := &Writer{
		w:           w,
		opts:        opts.fill(),
		sparseIndex: make([]sparseIndexEntry, 0, defaultIndexSize),
		bw:          recordio.NewBinaryWriter(buf),
		buf:         buf,
	}

	if err := writer.writeHeader(); err != nil {
		return nil, fmt.Errorf("run: failed to write header: %w", err)
	}

	writer.dataEnd = headerSize

	return writer, nil
}

func (w *Writer) writeHeader() error {
	if err := binary.Write(w.buf, binary.LittleEndian, magicHeader); err != nil {
		return err
	}
	return binary.Write(w.buf, binary.LittleEndian, formatVersion)
}

// Add appends one statement. Statements must arrive in output-stream
// order: keys ascending, LSNs strictly descending within a key.
func (w *Writer) Add(stmt *statement.Statement) error {
	if w.closed {
		return ErrRunClosed
	}
	if stmt == nil {
		return errors.New("run: nil statement")
	}

	newKey := true
	if w.last != nil {
		switch c := w.opts.Comparator(stmt.Key, w.last.Key); {
		case c < 0:
			return ErrOutOfOrder
		case c == 0:
			if stmt.LSN >= w.last.LSN {
				return ErrOutOfOrder
			}
			newKey = false
		}
	}

	// Index entries only at key-group boundaries, so a positioned read
	// never lands mid-key.
	if w.last == nil || (newKey && w.blockBytes >= int64(w.opts.BlockSize)) {
		w.sparseIndex = append(w.sparseIndex, sparseIndexEntry{
			key:    bytes.Clone(stmt.Key),
			offset: w.dataEnd,
		})
		w.blockBytes = 0
	}

	n, err := recordio.Write(w.buf, stmt)
	if err != nil {
		return fmt.Errorf("run: failed to write statement: %w", err)
	}

	w.dataEnd += n
	w.blockBytes += n
	w.last = stmt

	return nil
}

// Close writes the sparse index and footer and flushes the writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	return w.writeIndex()
}

func (w *Writer) writeIndex() error {
	if _, err := w.bw.WriteInt64(int64(len(w.sparseIndex))); err != nil {
		return err
	}

	for _, v := range w.sparseIndex {
		if _, err := w.bw.WriteBytes(v.key); err != nil {
			return err
		}
		if _, err := w.bw.WriteInt64(v.offset); err != nil {
			return err
		}
	}

	// Footer carries the sparse index offset and the magic number.
	if _, err := w.bw.WriteInt64(w.dataEnd); err != nil {
		return err
	}
	if _, err := w.bw.WriteInt64(magicFooter); err != nil {
		return err
	}

	return w.buf.Flush()
}

// Reader validates a run file and serves cursors over it.
type Reader struct {
	r           io.ReadSeeker
	br          recordio.BinaryReader
	opts        Options
	closed      bool
	sparseIndex []sparseIndexEntry
	dataEnd     int64
}

// OpenReader initializes a run reader on top of r.
func OpenReader(r io.ReadSeeker, opts *Options) (*Reader, error) {
	if r == nil {
		return nil, errors.New("run: reader cannot be nil")
	}

	reader := &Reader{
		r:    r,
		opts: opts.fill(),
		br:   recordio.NewBinaryReader(r),
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("run: failed to size run: %w", err)
	}
	if size <= headerSize {
		return nil, ErrEmptyRun
	}

	if err := reader.loadRun(); err != nil {
		return nil, fmt.Errorf("run: failed to load run: %w", err)
	}

	return reader, nil
}

func (r *Reader) loadRun() error {
	if err := r.checkHeader(); err != nil {
		return err
	}

	indexOffset, err := r.extractIndexOffset()
	if err != nil {
		return err
	}

	return r.readSparseIndex(indexOffset)
}

func (r *Reader) checkHeader() error {
	if _, err := r.r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	header, err := r.br.ReadInt64()
	if err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}
	if header != magicHeader {
		return ErrCorruptedRun
	}

	version, err := r.br.ReadInt64()
	if err != nil {
		return fmt.Errorf("invalid version: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("unsupported version %d", version)
	}

	return nil
}

func (r *Reader) extractIndexOffset() (int64, error) {
	footerSize := 2 * recordio.Int64Size
	if _, err := r.r.Seek(-footerSize, io.SeekEnd); err != nil {
		return 0, err
	}

	indexOffset, err := r.br.ReadInt64()
	if err != nil {
		return 0, err
	}

	footer, err := r.br.ReadInt64()
	if err != nil {
		return 0, err
	}
	if footer != magicFooter {
		return 0, ErrCorruptedRun
	}

	return indexOffset, nil
}

func (r *Reader) readSparseIndex(indexOffset int64) error {
	r.dataEnd = indexOffset
	if _, err := r.r.Seek(indexOffset, io.SeekStart); err != nil {
		return err
	}

	count, err := r.br.ReadInt64()
	if err != nil {
		return fmt.Errorf("invalid sparse index count: %w", err)
	}

	r.sparseIndex = make([]sparseIndexEntry, 0, count)
	for i := int64(0); i < count; i++ {
		key, err := r.br.ReadBytes()
		if err != nil {
			return fmt.Errorf("invalid sparse index key: %w", err)
		}

		offset, err := r.br.ReadInt64()
		if err != nil {
			return fmt.Errorf("invalid sparse index offset: %w", err)
		}

		r.sparseIndex = append(r.sparseIndex, sparseIndexEntry{
			key:    key,
			offset: offset,
		})
	}
	return nil
}

// Close marks the reader closed. Cursors taken from it become invalid.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

// Cursor positions a merge source at the start of the run. Only one
// cursor may read a reader at a time; the underlying seeker is shared.
func (r *Reader) Cursor() (source.Cursor, error) {
	if r.closed {
		return nil, ErrRunClosed
	}

	if _, err := r.r.Seek(headerSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("run: failed to seek to data: %w", err)
	}

	lr := io.LimitReader(r.r, r.dataEnd-headerSize)
	return &cursor{
		cmp: r.opts.Comparator,
		br:  bufio.NewReaderSize(lr, r.opts.BufferSize),
	}, nil
}

// cursor walks the run, turning the stored per-key descending-LSN groups
// back into the ascending order merge sources expose.
type cursor struct {
	cmp    statement.Comparator
	br     io.Reader
	group  []*statement.Statement // current key group, ascending LSN
	pos    int
	ahead  *statement.Statement // first statement of the next group
	eof    bool
	closed bool
}

func (c *cursor) Peek() (*statement.Statement, error) {
	if c.closed {
		return nil, ErrRunClosed
	}
	if c.pos >= len(c.group) {
		if err := c.loadGroup(); err != nil {
			return nil, err
		}
	}
	if c.pos >= len(c.group) {
		return nil, nil
	}
	return c.group[c.pos], nil
}

func (c *cursor) Advance() error {
	if c.closed {
		return ErrRunClosed
	}
	if c.pos >= len(c.group) {
		if err := c.loadGroup(); err != nil {
			return err
		}
	}
	if c.pos < len(c.group) {
		c.pos++
	}
	return nil
}

func (c *cursor) Close() error {
	c.closed = true
	c.group = nil
	c.ahead = nil
	return nil
}

// loadGroup reads the next key group and reverses it to ascending LSN.
func (c *cursor) loadGroup() error {
	c.group = c.group[:0]
	c.pos = 0

	first := c.ahead
	c.ahead = nil
	if first == nil {
		if c.eof {
			return nil
		}
		stmt, err := c.read()
		if err != nil {
			return err
		}
		if stmt == nil {
			return nil
		}
		first = stmt
	}

	group := []*statement.Statement{first}
	for {
		stmt, err := c.read()
		if err != nil {
			return err
		}
		if stmt == nil {
			break
		}
		if c.cmp(stmt.Key, first.Key) != 0 {
			c.ahead = stmt
			break
		}
		group = append(group, stmt)
	}

	// Stored newest first; sources expose oldest first.
	for i, j := 0, len(group)-1; i < j; i, j = i+1, j-1 {
		group[i], group[j] = group[j], group[i]
	}
	c.group = group

	return nil
}

func (c *cursor) read() (*statement.Statement, error) {
	if c.eof {
		return nil, nil
	}
	stmt, err := recordio.ReadStatement(c.br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.eof = true
			return nil, nil
		}
		return nil, fmt.Errorf("run: failed to read statement: %w", err)
	}
	return stmt, nil
}
