// Package metrics exposes collector counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the collection pipeline.
type Metrics struct {
	// Completed cycles by result: "record", "fetch_nack", "fetch_timeout", "build_failed"
	Cycles *prometheus.CounterVec

	// Insert command outcomes by kind
	Commits *prometheus.CounterVec

	// Pull requests by result: "hit", "miss"
	Pulls *prometheus.CounterVec

	// Next sequence number to be assigned
	NextSequence prometheus.Gauge

	// Records held by the local cache
	CachedRecords prometheus.Gauge

	// Time from tick to record build
	CycleLatency prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datacollector_cycles_total",
			Help: "Total collection cycles by result",
		}, []string{"result"}),

		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datacollector_commits_total",
			Help: "Total insert command outcomes by kind",
		}, []string{"outcome"}),

		Pulls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datacollector_pull_requests_total",
			Help: "Total inbound record requests by cache result",
		}, []string{"result"}),

		NextSequence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "datacollector_next_sequence",
			Help: "Next sequence number the device will assign",
		}),

		CachedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "datacollector_cached_records",
			Help: "Records held in the local cache",
		}),

		CycleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "datacollector_cycle_duration_seconds",
			Help:    "Duration from collection tick to built record",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4},
		}),

		registry: reg,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCycle records a finished collection cycle.
func (m *Metrics) IncrementCycle(result string) {
	if m != nil {
		m.Cycles.WithLabelValues(result).Inc()
	}
}

// IncrementCommit records an insert command outcome.
func (m *Metrics) IncrementCommit(outcome string) {
	if m != nil {
		m.Commits.WithLabelValues(outcome).Inc()
	}
}

// IncrementPull records an inbound record request.
func (m *Metrics) IncrementPull(hit bool) {
	if m != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		m.Pulls.WithLabelValues(result).Inc()
	}
}

// SetNextSequence records the ledger's next value.
func (m *Metrics) SetNextSequence(v uint32) {
	if m != nil {
		m.NextSequence.Set(float64(v))
	}
}

// SetCachedRecords records the cache size.
func (m *Metrics) SetCachedRecords(n int) {
	if m != nil {
		m.CachedRecords.Set(float64(n))
	}
}

// ObserveCycleLatency records the time a successful cycle took.
func (m *Metrics) ObserveCycleLatency(d time.Duration) {
	if m != nil {
		m.CycleLatency.Observe(d.Seconds())
	}
}
