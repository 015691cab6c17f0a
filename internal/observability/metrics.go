package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "asv"

// Metrics holds the Prometheus counters, histograms, and gauges for the load
// pipeline and the analytics endpoints.
type Metrics struct {
	// Startup load metrics.
	RowsRead      prometheus.Counter
	RowsRemoved   prometheus.Counter
	RowsLoaded    prometheus.Counter
	SourcesFailed prometheus.Counter
	LoadDuration  prometheus.Histogram
	TableRows     prometheus.Gauge

	SinkPublishErrors *prometheus.CounterVec // labels: sink={csv,kafka}

	// Request metrics.
	Requests        *prometheus.CounterVec   // labels: operation={query,stats,outliers}, outcome={success,client_error,error}
	RequestDuration *prometheus.HistogramVec // labels: operation
	CacheLookups    *prometheus.CounterVec   // labels: operation={stats,outliers}, result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsRemoved,
		m.RowsLoaded,
		m.SourcesFailed,
		m.LoadDuration,
		m.TableRows,
		m.SinkPublishErrors,
		m.Requests,
		m.RequestDuration,
		m.CacheLookups,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total raw rows read from source files.",
		}),
		RowsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_removed_total",
			Help:      "Total rows removed by the cleaning pass.",
		}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Total cleaned rows inserted into the collection.",
		}),
		SourcesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_failed_total",
			Help:      "Total source files that failed extraction or cleaning.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete startup load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Number of observations in the current snapshot.",
		}),
		SinkPublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_errors_total",
			Help:      "Failed publish attempts by sink.",
		}, []string{"sink"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Analytics requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Analytics operation duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by operation and result.",
		}, []string{"operation", "result"}),
	}
}
