// Package metrics provides Prometheus metrics for the change store.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"changestore/internal/store"
)

// Metrics holds the store's Prometheus metrics. They live on their own
// registry so several stores in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Write path
	WritesTotal       *prometheus.CounterVec
	WriteRetriesTotal prometheus.Counter

	// Every committed mutation, by kind
	MutationsTotal *prometheus.CounterVec

	// Reads
	QueryDuration *prometheus.HistogramVec

	// Store contents, refreshed by ObserveStats
	StoreVersion prometheus.Gauge
	RowsTotal    *prometheus.GaugeVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.WritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chs_writes_total",
			Help: "Total number of committed entity writes",
		},
		[]string{"dedup"},
	)

	m.WriteRetriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "chs_write_retries_total",
			Help: "Total number of writes retried after losing a leaf race",
		},
	)

	m.MutationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chs_mutations_total",
			Help: "Total number of committed mutations",
		},
		[]string{"kind"},
	)

	m.QueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chs_query_duration_seconds",
			Help:    "Duration of store reads in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	m.StoreVersion = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "chs_store_version",
			Help: "Current store version",
		},
	)

	m.RowsTotal = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chs_rows",
			Help: "Number of stored rows by kind",
		},
		[]string{"kind"},
	)

	return m
}

// WriteCommitted implements store.Recorder.
func (m *Metrics) WriteCommitted(dedup bool) {
	m.WritesTotal.WithLabelValues(fmt.Sprint(dedup)).Inc()
}

// WriteRetried implements store.Recorder.
func (m *Metrics) WriteRetried() {
	m.WriteRetriesTotal.Inc()
}

// Mutation implements store.Recorder.
func (m *Metrics) Mutation(kind string) {
	m.MutationsTotal.WithLabelValues(kind).Inc()
}

// Query implements store.Recorder.
func (m *Metrics) Query(name string, d time.Duration) {
	m.QueryDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveStats copies a stats snapshot into the gauges.
func (m *Metrics) ObserveStats(stats *store.Stats) {
	m.StoreVersion.Set(float64(stats.Version))
	m.RowsTotal.WithLabelValues("files").Set(float64(stats.Files))
	m.RowsTotal.WithLabelValues("branches").Set(float64(stats.Branches))
	m.RowsTotal.WithLabelValues("changes").Set(float64(stats.Changes))
	m.RowsTotal.WithLabelValues("snapshots").Set(float64(stats.Snapshots))
	m.RowsTotal.WithLabelValues("change_sets").Set(float64(stats.ChangeSets))
}

// WriteText writes every gathered metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ store.Recorder = (*Metrics)(nil)
