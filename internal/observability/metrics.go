package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the analysis pipeline.
type Metrics struct {
	JobsConsumed    prometheus.Counter
	ReportsProduced prometheus.Counter
	PipelineRunning prometheus.Gauge

	// AnalysisErrors counts failed jobs. labels: kind={duplicate_timestamp,
	// non_uniform_sampling,missing_value,negative_value,alignment,invalid_job,shape,io}
	AnalysisErrors *prometheus.CounterVec

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	AnalysisDuration        prometheus.Histogram

	// Field cache metrics.
	FieldCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.JobsConsumed,
		m.ReportsProduced,
		m.PipelineRunning,
		m.AnalysisErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AnalysisDuration,
		m.FieldCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adcirc_compound",
			Name:      "jobs_consumed_total",
			Help:      help("Total analysis jobs read from the source topic."),
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adcirc_compound",
			Name:      "reports_produced_total",
			Help:      help("Total reports, including failure reports, written to the sink topic."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adcirc_compound",
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adcirc_compound",
			Name:      "analysis_errors_total",
			Help:      help("Failed analysis jobs by error kind."),
		}, []string{"kind"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adcirc_compound",
			Name:      "batch_size",
			Help:      help("Number of jobs per batch extracted from Kafka."),
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adcirc_compound",
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-analyze-load cycle."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adcirc_compound",
			Name:      "analysis_duration_seconds",
			Help:      help("Duration of ingesting three runs and computing compoundness."),
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		FieldCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adcirc_compound",
			Name:      "field_cache_total",
			Help:      help("Loaded-field cache lookups by result."),
		}, []string{"result"}),
	}
}
