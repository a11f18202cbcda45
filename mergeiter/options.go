package mergeiter

import (
	"errors"
	"slices"

	"github.com/davidvella/lsmerge/handler"
	"github.com/davidvella/lsmerge/metrics"
	"github.com/davidvella/lsmerge/statement"
	"github.com/davidvella/lsmerge/upsert"
)

// Common errors that can be returned by merge operations.
var (
	ErrClosed          = errors.New("mergeiter: iterator closed")
	ErrNotStarted      = errors.New("mergeiter: iterator not started")
	ErrNoAlgebra       = errors.New("mergeiter: upsert statement with no algebra configured")
	ErrUpsertDeferred  = errors.New("mergeiter: deferred delete over an upsert statement")
	ErrHandlerRequired = errors.New("mergeiter: deferred-delete handler requires a primary-index merge")
)

// Options configures one merge.
type Options struct {
	// Comparator orders keys; nil means bytewise.
	Comparator statement.Comparator

	// IsPrimary states the merged index is the primary one. Only a
	// primary-index merge generates deferred DELETEs.
	IsPrimary bool

	// IsLastLevel states nothing older than these sources exists, so
	// history needed only to overwrite older levels can be dropped.
	IsLastLevel bool

	// ReadViews lists the LSNs open readers are pinned at, in any order.
	ReadViews []uint64

	// Algebra interprets UPSERT programs. Required only if the sources
	// may contain UPSERTs.
	Algebra upsert.Algebra

	// Handler receives deferred DELETE notifications. Nil disables them
	// even on a primary-index merge.
	Handler handler.Handler

	// Metrics counts merge activity; nil disables counting.
	Metrics *metrics.Metrics
}

func (o Options) validate() error {
	if o.Handler != nil && !o.IsPrimary {
		return ErrHandlerRequired
	}
	return nil
}

// normalizeReadViews sorts the read views ascending and drops duplicates,
// without touching the caller's slice.
func normalizeReadViews(views []uint64) []uint64 {
	if len(views) == 0 {
		return nil
	}
	vs := slices.Clone(views)
	slices.Sort(vs)
	return slices.Compact(vs)
}
