package recordio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/davidvella/lsmerge/statement"
)

var (
	Uint64Size = int64(binary.Size(uint64(0)))
	Int64Size  = int64(binary.Size(int64(0)))
	// MagicBytes identify a valid statement frame (STM).
	MagicBytes           = []byte{0x53, 0x54, 0x4D}
	ErrInvalidMagicBytes = errors.New("recordio: invalid magic bytes - not a valid statement frame")
	ErrInvalidKind       = errors.New("recordio: invalid statement kind")
)

const deferredDeleteFlag = byte(1 << 0)

// BinaryWriter handles writing binary data with error handling.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

func (bw BinaryWriter) WriteUint64(v uint64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, v); err != nil {
		return 0, err
	}
	return Uint64Size, nil
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Int64Size, nil
}

func (bw BinaryWriter) WriteUint8(b byte) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, b); err != nil {
		return 0, err
	}
	return 1, nil
}

func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	// Write bytes length (uint64)
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing bytes length: %w", err)
	}

	// Write bytes content
	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing bytes content: %w", err)
	}

	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

func (br BinaryReader) ReadUint64() (uint64, error) {
	var value uint64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadUint8() (byte, error) {
	var value byte
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading bytes length: %w", err)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading bytes content: %w", err)
	}
	return b, nil
}

// Write writes a single statement to the writer.
func Write(w io.Writer, stmt *statement.Statement) (int64, error) {
	if stmt == nil {
		return 0, nil
	}

	var (
		totalBytes int64
		n          int64
	)

	mn, err := w.Write(MagicBytes)
	if err != nil {
		return int64(mn), fmt.Errorf("failed to write magic bytes: %w", err)
	}
	totalBytes += int64(mn)

	bw := NewBinaryWriter(w)

	n, err = bw.WriteBytes(stmt.Key)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing key: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteUint64(stmt.LSN)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing lsn: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteUint8(byte(stmt.Kind))
	if err != nil {
		return totalBytes, fmt.Errorf("error writing kind: %w", err)
	}
	totalBytes += n

	var flags byte
	if stmt.DeferredDelete {
		flags |= deferredDeleteFlag
	}
	n, err = bw.WriteUint8(flags)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing flags: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteBytes(stmt.Value)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing value: %w", err)
	}
	totalBytes += n

	return totalBytes, nil
}

// ReadStatement reads a single statement from the reader.
func ReadStatement(r io.Reader) (*statement.Statement, error) {
	magicBytes := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magicBytes); err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if !bytes.Equal(magicBytes, MagicBytes) {
		return nil, ErrInvalidMagicBytes
	}

	br := NewBinaryReader(r)

	key, err := br.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("error reading key: %w", err)
	}

	lsn, err := br.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("error reading lsn: %w", err)
	}

	kind, err := br.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("error reading kind: %w", err)
	}
	if statement.Kind(kind) < statement.Insert || statement.Kind(kind) > statement.Delete {
		return nil, ErrInvalidKind
	}

	flags, err := br.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("error reading flags: %w", err)
	}

	value, err := br.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("error reading value: %w", err)
	}

	return &statement.Statement{
		Key:            key,
		LSN:            lsn,
		Kind:           statement.Kind(kind),
		Value:          value,
		DeferredDelete: flags&deferredDeleteFlag != 0,
	}, nil
}

// Size calculates the total size in bytes that a statement will occupy
// when written. This includes magic bytes, all fields and their length
// prefixes.
func Size(stmt *statement.Statement) int64 {
	if stmt == nil {
		return 0
	}

	var totalSize int64

	// Magic bytes size
	totalSize += int64(len(MagicBytes))

	// Key field: length prefix + content
	totalSize += Uint64Size + int64(len(stmt.Key))

	// LSN: uint64
	totalSize += Uint64Size

	// Kind and flags: one byte each
	totalSize += 2

	// Value field: length prefix + content
	totalSize += Uint64Size + int64(len(stmt.Value))

	return totalSize
}
