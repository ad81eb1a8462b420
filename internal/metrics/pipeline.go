package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oceanq"

// Stage names used as the "stage" label.
const (
	StageIntent    = "intent"
	StagePlan      = "plan"
	StageSelect    = "select"
	StageSample    = "sample"
	StageAggregate = "aggregate"
	StageCompose   = "compose"
)

// Answer pipeline Prometheus metrics.
var (
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total answered questions by outcome",
		},
		[]string{"outcome"}, // "ok" / "cached" / "unavailable" / "invalid" / "cancelled" / "error"
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Answer pipeline stage duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Query cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	CandidatesSelected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_selected",
			Help:      "Number of candidate profiles returned by selection",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ArchiveSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_skips_total",
			Help:      "Measurement archives skipped during sampling",
		},
		[]string{"reason"}, // "not_found" / "unreadable"
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Distribution of response confidence scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	SimilarityPlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_plans_total",
			Help:      "Similarity plan decisions",
		},
		[]string{"result"}, // "built" / "skipped" / "failed"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus answer pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(CandidatesSelected)
	prometheus.MustRegister(ArchiveSkipsTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(SimilarityPlansTotal)
	pipelineMetricsRegistered = true
}

// ObserveStage records the duration of a pipeline stage started at start.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
