package statement

import (
	"bytes"
	"fmt"
)

// Kind identifies how a statement modifies the row it is keyed on.
type Kind uint8

const (
	// Insert asserts the row did not exist at any older LSN.
	Insert Kind = iota + 1
	// Replace sets the row's value regardless of whether it existed.
	Replace
	// Upsert carries an update program applied to whatever value the
	// row had; it inserts the row if it was absent.
	Upsert
	// Delete removes the row.
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Replace:
		return "REPLACE"
	case Upsert:
		return "UPSERT"
	case Delete:
		return "DELETE"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Comparator orders raw statement keys.
type Comparator func(a, b []byte) int

// DefaultComparator orders keys bytewise.
func DefaultComparator(a, b []byte) int { return bytes.Compare(a, b) }

// Statement is one versioned modification of a single row. Statements are
// immutable once created; helpers that need a variant return a fresh copy.
type Statement struct {
	Key   []byte
	LSN   uint64
	Kind  Kind
	Value []byte

	// DeferredDelete marks a statement whose writer skipped reading the
	// row it overwrote, leaving the secondary-index removal of that older
	// row to compaction.
	DeferredDelete bool
}

// Max is a sentinel ordered after every real statement. It is only ever
// compared by identity inside merge bounds, never read.
var Max = &Statement{}

// Clone returns an independent copy of s.
func (s *Statement) Clone() *Statement {
	c := *s
	return &c
}

// WithKind returns a copy of s retagged with the given kind.
func (s *Statement) WithKind(k Kind) *Statement {
	c := *s
	c.Kind = k
	return &c
}

// SurrogateDelete synthesizes the DELETE a silent overwrite implies: it
// removes the overwritten row's image at the LSN of the overwrite.
func SurrogateDelete(old *Statement, lsn uint64) *Statement {
	return &Statement{
		Key:   old.Key,
		LSN:   lsn,
		Kind:  Delete,
		Value: old.Value,
	}
}

// Compare orders statements by (key, LSN) ascending, with Max after
// everything else.
func Compare(cmp Comparator, a, b *Statement) int {
	if a == b {
		return 0
	}
	if a == Max {
		return 1
	}
	if b == Max {
		return -1
	}
	if c := cmp(a.Key, b.Key); c != 0 {
		return c
	}
	switch {
	case a.LSN < b.LSN:
		return -1
	case a.LSN > b.LSN:
		return 1
	default:
		return 0
	}
}

// Less is the comparison shape ordered containers expect.
func Less(cmp Comparator, a, b *Statement) bool {
	return Compare(cmp, a, b) < 0
}

func (s *Statement) String() string {
	return fmt.Sprintf("%s@%d(%q)", s.Kind, s.LSN, s.Key)
}
