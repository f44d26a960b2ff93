package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Dataset loading metrics.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source
	LoaderCache         *prometheus.CounterVec   // labels: source, result={hit,miss,shared}
	BodyCache           *prometheus.CounterVec   // labels: result={hit,miss,stale,error}
	RecordsLoaded       prometheus.Gauge

	// Snapshot metrics.
	SnapshotsComputed prometheus.Counter
	SnapshotCache     *prometheus.CounterVec // labels: result={hit,miss}
	SnapshotDuration  prometheus.Histogram
	StaleResults      prometheus.Counter
	SnapshotsExported *prometheus.CounterVec // labels: sink={xlsx,kafka}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.LoaderCache,
		m.BodyCache,
		m.RecordsLoaded,
		m.SnapshotsComputed,
		m.SnapshotCache,
		m.SnapshotDuration,
		m.StaleResults,
		m.SnapshotsExported,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "source_fetches_total",
			Help:      "Remote dataset fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cropmap",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of remote dataset fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		LoaderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "loader_cache_total",
			Help:      "Dataset loader lookups by source and result.",
		}, []string{"source", "result"}),
		BodyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "body_cache_total",
			Help:      "Persistent body cache lookups by result.",
		}, []string{"result"}),
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cropmap",
			Name:      "dataset_records",
			Help:      "Number of records in the loaded dataset.",
		}),
		SnapshotsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "snapshots_computed_total",
			Help:      "Styled snapshots computed.",
		}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cropmap",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent filtering and normalizing one snapshot.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "stale_results_total",
			Help:      "Session results dropped because a newer selection superseded them.",
		}),
		SnapshotsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropmap",
			Name:      "snapshots_exported_total",
			Help:      "Snapshots written by the export command, by sink.",
		}, []string{"sink"}),
	}
}
