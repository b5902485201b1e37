package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// disaggregation pipeline.
type Metrics struct {
	BlocksProcessed  prometheus.Counter
	HourlyRowsLoaded prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Sampler and invariant metrics.
	MatchOutcomes            *prometheus.CounterVec // label: level={EXACT,MONTHLY,EXACT_AVG,MONTHLY_AVG,UNIFORM,ERROR}
	MaxConservationDeviation prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.BlocksProcessed,
		m.HourlyRowsLoaded,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.MatchOutcomes,
		m.MaxConservationDeviation,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests never hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_disagg",
			Name:      "blocks_processed_total",
			Help:      "Total 3-hour blocks disaggregated.",
		}),
		HourlyRowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_disagg",
			Name:      "hourly_rows_loaded_total",
			Help:      "Total hourly rows written to the sinks.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_disagg",
			Name:      "pipeline_running",
			Help:      "1 while the disaggregation pass is active.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_disagg",
			Name:      "batch_size",
			Help:      "Number of future blocks per extracted batch.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 20000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_disagg",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-sample-load batch cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		MatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_disagg",
			Name:      "match_outcomes_total",
			Help:      "Sampler resolutions by match level.",
		}, []string{"level"}),
		MaxConservationDeviation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_disagg",
			Name:      "max_conservation_deviation",
			Help:      "Largest |sum(hourly) - block total| observed so far.",
		}),
	}
}
