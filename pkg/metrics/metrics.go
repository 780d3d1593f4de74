// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	ChunksDispatchedTotal   prometheus.Counter
	ChunksCompletedTotal    prometheus.Counter
	ChunksFailedTotal       prometheus.Counter
	ChunkAttemptsTotal      prometheus.Counter
	ChunkProcessingDuration prometheus.Histogram
	SentencesProcessedTotal prometheus.Counter
	WordsUpsertedTotal      prometheus.Counter
	QueuePublishErrorsTotal prometheus.Counter
	StoresMergedTotal       prometheus.Counter
	MergeDuration           prometheus.Histogram
	CircuitBreakerState     *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		ChunksDispatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_chunks_dispatched_total",
				Help: "Total chunk jobs published to the work queue.",
			},
		),
		ChunksCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_chunks_completed_total",
				Help: "Total chunks whose partial store was marked complete.",
			},
		),
		ChunksFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_chunks_failed_total",
				Help: "Total chunks that exhausted their attempt budget.",
			},
		),
		ChunkAttemptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_chunk_attempts_total",
				Help: "Total chunk processing attempts, including redeliveries.",
			},
		),
		ChunkProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "concordance_chunk_processing_seconds",
				Help:    "Time to segment a chunk and populate its partial store.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		SentencesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_sentences_processed_total",
				Help: "Total sentences segmented by workers.",
			},
		),
		WordsUpsertedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_words_upserted_total",
				Help: "Total word occurrences written to partial stores.",
			},
		),
		QueuePublishErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_queue_publish_errors_total",
				Help: "Total failed job publishes, before retries.",
			},
		),
		StoresMergedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "concordance_stores_merged_total",
				Help: "Total partial stores consumed by merge passes.",
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "concordance_merge_seconds",
				Help:    "Wall time of the full merge/export stage.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.ChunksDispatchedTotal,
		m.ChunksCompletedTotal,
		m.ChunksFailedTotal,
		m.ChunkAttemptsTotal,
		m.ChunkProcessingDuration,
		m.SentencesProcessedTotal,
		m.WordsUpsertedTotal,
		m.QueuePublishErrorsTotal,
		m.StoresMergedTotal,
		m.MergeDuration,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
