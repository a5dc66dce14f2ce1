package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and retrieval Prometheus metrics.
var (
	IngestEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_entries_total",
			Help:      "Remote entries processed by the ingestion pipeline",
		},
		[]string{"outcome"}, // "created" / "skipped" / "failed"
	)

	EmbeddingUnavailableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_unavailable_total",
			Help:      "Papers stored without an embedding",
		},
	)

	SearchFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_total",
			Help:      "Keyword searches that fell back to the remote source",
		},
		[]string{"result"}, // "hit" / "empty" / "error"
	)

	RemoteFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fetch_total",
			Help:      "Requests to the remote paper source",
		},
		[]string{"source", "status"},
	)

	RemoteFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_fetch_duration_seconds",
			Help:      "Remote paper source request duration in seconds, including rate-limit waits",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and retrieval metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestEntriesTotal)
	prometheus.MustRegister(EmbeddingUnavailableTotal)
	prometheus.MustRegister(SearchFallbackTotal)
	prometheus.MustRegister(RemoteFetchTotal)
	prometheus.MustRegister(RemoteFetchDuration)
	pipelineMetricsRegistered = true
}
