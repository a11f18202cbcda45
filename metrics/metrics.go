// Package metrics exposes compaction activity as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a merge did. A nil *Metrics is valid and counts
// nothing, so the engine can run unmetered.
type Metrics struct {
	statementsRead    prometheus.Counter
	statementsEmitted prometheus.Counter
	tombstonesPruned  prometheus.Counter
	upsertsSquashed   prometheus.Counter
	deferredDeletes   prometheus.Counter
}

// New creates the counter set and registers it with reg when non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statementsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmerge_statements_read_total",
			Help: "Statements pulled from merge sources",
		}),
		statementsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmerge_statements_emitted_total",
			Help: "Statements emitted into the compacted output",
		}),
		tombstonesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmerge_tombstones_pruned_total",
			Help: "Redundant DELETE statements dropped from the output",
		}),
		upsertsSquashed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmerge_upserts_squashed_total",
			Help: "UPSERT statements folded into a younger statement",
		}),
		deferredDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmerge_deferred_deletes_total",
			Help: "Deferred DELETE notifications handed to the handler",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.statementsRead,
			m.statementsEmitted,
			m.tombstonesPruned,
			m.upsertsSquashed,
			m.deferredDeletes,
		)
	}

	return m
}

func (m *Metrics) StatementsRead(n int) {
	if m != nil {
		m.statementsRead.Add(float64(n))
	}
}

func (m *Metrics) StatementsEmitted(n int) {
	if m != nil {
		m.statementsEmitted.Add(float64(n))
	}
}

func (m *Metrics) TombstonesPruned(n int) {
	if m != nil {
		m.tombstonesPruned.Add(float64(n))
	}
}

func (m *Metrics) UpsertsSquashed(n int) {
	if m != nil {
		m.upsertsSquashed.Add(float64(n))
	}
}

func (m *Metrics) DeferredDeletes(n int) {
	if m != nil {
		m.deferredDeletes.Add(float64(n))
	}
}
