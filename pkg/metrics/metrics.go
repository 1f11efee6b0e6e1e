// Package metrics exposes Prometheus collectors for snapshot stores and
// restore passes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	Stores        *prometheus.CounterVec
	Passes        *prometheus.CounterVec
	NodesDeleted  prometheus.Counter
	NodesCreated  prometheus.Counter
	EdgesRestored prometheus.Counter
	PassDuration  prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Stores: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paramsnap_stores_total",
			Help: "Snapshot store attempts by result.",
		}, []string{"result"}),
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paramsnap_restore_passes_total",
			Help: "Restore passes by result.",
		}, []string{"result"}),
		NodesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "paramsnap_nodes_deleted_total",
			Help: "Graph nodes deleted by restore passes.",
		}),
		NodesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "paramsnap_nodes_created_total",
			Help: "Graph nodes created by restore passes.",
		}),
		EdgesRestored: f.NewCounter(prometheus.CounterOpts{
			Name: "paramsnap_edges_restored_total",
			Help: "Recipient edges re-pointed to replacement control nodes.",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "paramsnap_restore_pass_duration_seconds",
			Help:    "Wall time of a restore pass, from load to layout.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

// Pass results.
const (
	ResultOK         = "ok"
	ResultLoadError  = "load_error"
	ResultApplyError = "apply_error"
)

// ObserveStore counts one store attempt.
func (m *Metrics) ObserveStore(ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = "error"
	}
	m.Stores.WithLabelValues(result).Inc()
}

// ObservePass records the outcome of one restore pass.
func (m *Metrics) ObservePass(result string, deleted, created, edges int, d time.Duration) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(result).Inc()
	m.NodesDeleted.Add(float64(deleted))
	m.NodesCreated.Add(float64(created))
	m.EdgesRestored.Add(float64(edges))
	m.PassDuration.Observe(d.Seconds())
}
