package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Slack metrics
	SlackMessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_slack_messages_ingested_total",
			Help: "Total number of Slack messages ingested",
		},
		[]string{"status"},
	)

	SlackRepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_slack_replies_sent_total",
			Help: "Total number of replies posted back to Slack",
		},
		[]string{"status"},
	)

	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_files_processed_total",
			Help: "Total number of uploaded files processed",
		},
		[]string{"file_type", "status"},
	)

	// OpenAI metrics
	EmbeddingGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_embedding_generations_total",
			Help: "Total number of embedding generations",
		},
		[]string{"status"},
	)

	EmbeddingGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askhub_embedding_generation_duration_seconds",
			Help:    "Duration of embedding generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_completion_calls_total",
			Help: "Total number of chat completion API calls",
		},
		[]string{"status"},
	)

	CompletionCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askhub_completion_call_duration_seconds",
			Help:    "Duration of chat completion API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query metrics
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_queries_processed_total",
			Help: "Total number of question/answer exchanges processed",
		},
		[]string{"source"},
	)

	// Vector index metrics
	VectorUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_vector_upserts_total",
			Help: "Total number of vector index upserts",
		},
		[]string{"status"},
	)

	VectorQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askhub_vector_queries_total",
			Help: "Total number of vector similarity queries",
		},
		[]string{"status"},
	)

	MessagesWithoutVectors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "askhub_messages_without_vectors",
			Help: "Number of stored messages missing a vector entry",
		},
	)
)
