package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// collection run.
type Metrics struct {
	// Acquisition metrics.
	RequestsTotal        *prometheus.CounterVec // labels: source, outcome={success,rate_limited,server_error,network_error,fatal}
	RetriesTotal         *prometheus.CounterVec // labels: source
	RequestDuration      *prometheus.HistogramVec
	RateLimitWaitSeconds *prometheus.HistogramVec

	// Dataset metrics.
	DatasetStatus    *prometheus.CounterVec // labels: dataset, status={success,no_data,error,skipped,static}
	RecordsCollected *prometheus.GaugeVec   // labels: dataset

	// Validation metrics.
	ValidationErrors   *prometheus.CounterVec // labels: dataset
	ValidationWarnings *prometheus.CounterVec // labels: dataset
}

// NewMetrics creates and registers all collector metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsTotal,
		m.RetriesTotal,
		m.RequestDuration,
		m.RateLimitWaitSeconds,
		m.DatasetStatus,
		m.RecordsCollected,
		m.ValidationErrors,
		m.ValidationWarnings,
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
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontario_data",
			Name:      "requests_total",
			Help:      "HTTP request attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontario_data",
			Name:      "retries_total",
			Help:      "Retry attempts after transient failures.",
		}, []string{"source"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontario_data",
			Name:      "request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		RateLimitWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontario_data",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting on the per-client rate limiter.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		DatasetStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontario_data",
			Name:      "dataset_status_total",
			Help:      "Per-dataset collection outcomes.",
		}, []string{"dataset", "status"}),
		RecordsCollected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ontario_data",
			Name:      "records_collected",
			Help:      "Records written for each dataset in the latest run.",
		}, []string{"dataset"}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontario_data",
			Name:      "validation_errors_total",
			Help:      "Fatal validation findings per dataset.",
		}, []string{"dataset"}),
		ValidationWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontario_data",
			Name:      "validation_warnings_total",
			Help:      "Advisory validation findings per dataset.",
		}, []string{"dataset"}),
	}
}
