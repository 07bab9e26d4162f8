package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion and retrieval Prometheus metrics.
var (
	StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_runs_total",
			Help:      "Pipeline stage runs by outcome",
		},
		[]string{"stage", "outcome"}, // outcome: completed / failed
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	SearchCollections = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vector_search_collections",
			Help:      "Collections consulted per vector search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
	)

	SearchCollectionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vector_search_collection_errors_total",
			Help:      "Per-collection search failures skipped during fan-out",
		},
		[]string{"collection"},
	)

	QueryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_executions_total",
			Help:      "Per-dataset query executions by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register registers embedding, completion and pipeline metrics. HTTP
// metrics register themselves at init.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpRequestsInFlight,
			httpRequestBytes,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			CompletionRequestsTotal,
			CompletionRequestDuration,
			CompletionTokensTotal,
			StageRunsTotal,
			StageDuration,
			SearchCollections,
			SearchCollectionErrorsTotal,
			QueryExecutionsTotal,
		)
	})
}
