package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "saasxray"
)

var (
	analysisDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// Analysis Metrics
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time taken to fully analyze one application.",
		Buckets:   analysisDurationBuckets,
	}, []string{"platform"})

	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_runs_total",
		Help:      "Count of application analyses.",
	}, []string{"platform", "status"})

	AnalysisSeverityTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_severity_total",
		Help:      "Count of analyses by resulting severity band.",
	}, []string{"platform", "severity"})

	// Anomaly Metrics
	AnomaliesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "anomalies_detected_total",
		Help:      "Count of triggered anomaly patterns.",
	}, []string{"pattern", "severity"})

	// Batch Metrics
	BatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_size_applications",
		Help:      "Number of applications per batch analysis run.",
		Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"source"})

	BatchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_failures_total",
		Help:      "Count of applications that failed analysis within a batch.",
	}, []string{"source"})

	// Scope Library Metrics
	ScopeLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scope_lookups_total",
		Help:      "Count of scope catalog lookups by outcome.",
	}, []string{"result"})

	// Validation Harness Metrics
	ValidationMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_metric",
		Help:      "Latest validation harness metric values (precision, recall, f1, accuracy, auc).",
	}, []string{"metric"})

	ValidationTargetMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_target_misses_total",
		Help:      "Count of validation runs missing a CI target.",
	}, []string{"target"})
)
