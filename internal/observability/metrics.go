package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opendata_summary"

// Run outcome label values.
const (
	OutcomeSuccess       = "success"
	OutcomeInputNotFound = "input_not_found"
	OutcomeError         = "error"
)

// History lookup label values.
const (
	HistoryFound       = "found"
	HistoryUnavailable = "unavailable"
	HistorySkipped     = "skipped"
)

// Metrics holds the Prometheus counters, histograms, and gauges for summary runs.
type Metrics struct {
	Runs                 *prometheus.CounterVec // labels: outcome={success,input_not_found,error}
	RowsParsed           prometheus.Gauge
	DecodeFallbacks      prometheus.Counter
	HistoryLookups       *prometheus.CounterVec // labels: result={found,unavailable,skipped}
	RunDuration          prometheus.Histogram
	LastSuccessTimestamp prometheus.Gauge
	SchedulerRunning     prometheus.Gauge
}

// NewMetrics creates and registers all summary metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.RowsParsed,
		m.DecodeFallbacks,
		m.HistoryLookups,
		m.RunDuration,
		m.LastSuccessTimestamp,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Summary runs by outcome.",
		}, []string{"outcome"}),
		RowsParsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_parsed",
			Help:      "Proposals counted by the most recent successful run.",
		}),
		DecodeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_fallback_total",
			Help:      "Snapshots that were not valid UTF-8 and were decoded as cp1252.",
		}),
		HistoryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_lookups_total",
			Help:      "Previous-snapshot lookups by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete summary run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful run.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when stopped.",
		}),
	}
}
