// Package observability holds the service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fishing_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion and reads.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: status={ok,partial,failed}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	// Per-date outcomes.
	DatesProcessed      *prometheus.CounterVec // labels: outcome={ok,validation,no_data,upstream,storage,internal}
	CatchRecordsWritten prometheus.Counter

	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: kind, outcome={success,error,empty}
	FetchDuration    *prometheus.HistogramVec // labels: kind

	// Read-side metrics.
	StorePagesRead prometheus.Counter
	QueryCache     *prometheus.CounterVec // labels: lookup={series,day}, result={hit,miss}
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Ingestion runs by final status."),
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete ingestion run."),
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while an ingestion run is in progress, 0 otherwise."),
		}),
		DatesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_processed_total",
			Help:      help("Per-date ingestion units by outcome."),
		}, []string{"outcome"}),
		CatchRecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catch_records_written_total",
			Help:      help("Catch records upserted into the catch table."),
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      help("GraphQL fetches by report kind and outcome."),
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("GraphQL fetch duration in seconds, retries included."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 60},
		}, []string{"kind"}),
		StorePagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_pages_read_total",
			Help:      help("Result pages read from the key-value store by series lookups."),
		}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      help("Read cache lookups by lookup type and result."),
		}, []string{"lookup", "result"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.DatesProcessed,
		m.CatchRecordsWritten,
		m.UpstreamRequests,
		m.FetchDuration,
		m.StorePagesRead,
		m.QueryCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
