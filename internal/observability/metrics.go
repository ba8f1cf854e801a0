package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	ReportsIngested prometheus.Counter
	EventsBuilt     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Reanalysis retrieval metrics.
	GridsFetched  *prometheus.CounterVec // labels: variable, outcome={fetched,cached,error}
	FetchDuration prometheus.Histogram

	// Stage metrics.
	StageDuration *prometheus.HistogramVec // label: stage
	StageFailures *prometheus.CounterVec   // label: stage
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsIngested,
		m.EventsBuilt,
		m.PipelineRunning,
		m.GridsFetched,
		m.FetchDuration,
		m.StageDuration,
		m.StageFailures,
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
		ReportsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bigday",
			Name:      "reports_ingested_total",
			Help:      "Catalog reports surviving the ingest filters.",
		}),
		EventsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bigday",
			Name:      "events_built_total",
			Help:      "Big-day events produced by clustering.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bigday",
			Name:      "pipeline_running",
			Help:      "1 while the stage pipeline is executing, 0 otherwise.",
		}),
		GridsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bigday",
			Name:      "grids_fetched_total",
			Help:      "Reanalysis grid retrievals by variable and outcome.",
		}, []string{"variable", "outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bigday",
			Name:      "grid_fetch_duration_seconds",
			Help:      "Duration of a single archive download.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bigday",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bigday",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures.",
		}, []string{"stage"}),
	}
}
