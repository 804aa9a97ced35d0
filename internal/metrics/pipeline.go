package metrics

import "github.com/prometheus/client_golang/prometheus"

// Answer generation, ingestion and query log Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "generation_requests_total",
			Help:      "Total number of LLM generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clauseinsight",
			Name:      "generation_request_duration_seconds",
			Help:      "LLM generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "generation_tokens_total",
			Help:      "Total LLM tokens consumed by generation",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	GenerationRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "generation_retries_total",
			Help:      "Generation retries after unusable LLM output",
		},
		[]string{"reason"}, // "empty_answer"
	)

	DocumentsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "documents_ingested_total",
			Help:      "Total number of ingested contract documents",
		},
		[]string{"status"}, // "ok" / "error"
	)

	ChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks written to the vector index",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clauseinsight",
			Name:      "ingest_duration_seconds",
			Help:      "Full document ingest duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	IndexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clauseinsight",
			Name:      "index_chunks",
			Help:      "Number of chunks currently held in the vector index",
		},
	)

	QueryLogFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clauseinsight",
			Name:      "querylog_failures_total",
			Help:      "Query log writes that failed and were dropped",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers generation, ingest and query log metrics.
// Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(GenerationRetriesTotal)
	prometheus.MustRegister(DocumentsIngestedTotal)
	prometheus.MustRegister(ChunksIndexedTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IndexChunks)
	prometheus.MustRegister(QueryLogFailuresTotal)
	pipelineMetricsRegistered = true
}
