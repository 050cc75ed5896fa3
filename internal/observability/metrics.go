package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL runs.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	PublishedRows   prometheus.Gauge

	// Stage metrics.
	RawRowsLoaded  prometheus.Counter
	RowsNormalized prometheus.Counter
	RowsDropped    prometheus.Counter
	FlagConflicts  prometheus.Counter

	// Live fetch metrics.
	LiveFetchAttempts *prometheus.CounterVec // labels: outcome={success,empty,error}
	LiveFetchDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-transform-publish run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "pipeline_running",
			Help:      "1 when the scheduler loop is active, 0 when shut down.",
		}),
		PublishedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "published_rows",
			Help:      "Rows in the most recently published artifact.",
		}),
		RawRowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "raw_rows_loaded_total",
			Help:      "Raw historical rows read from object storage.",
		}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_normalized_total",
			Help:      "Canonical rows produced by schema normalization.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped for missing fields or invalid dates.",
		}),
		FlagConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "flag_conflicts_total",
			Help:      "Dates where multiple TMAX readings disagreed on a flag pair.",
		}),
		LiveFetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "live_fetch_attempts_total",
			Help:      "Live weather API attempts by outcome.",
		}, []string{"outcome"}),
		LiveFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "live_fetch_duration_seconds",
			Help:      "Live weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.PublishedRows,
		m.RawRowsLoaded,
		m.RowsNormalized,
		m.RowsDropped,
		m.FlagConflicts,
		m.LiveFetchAttempts,
		m.LiveFetchDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "run_duration_seconds"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "pipeline_running"}),
		PublishedRows:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "published_rows"}),
		RawRowsLoaded:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "raw_rows_loaded_total"}),
		RowsNormalized:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "rows_normalized_total"}),
		RowsDropped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "rows_dropped_total"}),
		FlagConflicts:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "flag_conflicts_total"}),
		LiveFetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "live_fetch_attempts_total"}, []string{"outcome"}),
		LiveFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "live_fetch_duration_seconds"}),
	}
}
