package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/resilience"
)

// Dispatcher registers a run with the tracker and publishes one job per
// chunk. Publishes go through a circuit breaker and a bounded retry; job
// arrival order carries no meaning downstream, only the chunk index inside
// each job does.
type Dispatcher struct {
	queue   queue.Queue
	tracker Tracker
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Dispatcher. metrics may be nil.
func New(q queue.Queue, t Tracker, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		tracker: t,
		breaker: resilience.NewCircuitBreaker("chunk-publish", resilience.CircuitBreakerConfig{}),
		retry:   resilience.RetryConfig{MaxAttempts: 3},
		metrics: m,
		logger:  slog.Default().With("component", "dispatcher"),
	}
}

// Dispatch registers len(jobs) chunks and publishes every job. It fails on
// the first chunk that cannot be published after retries.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []splitter.ChunkJob) error {
	if err := d.tracker.Register(ctx, len(jobs)); err != nil {
		return fmt.Errorf("registering run: %w", err)
	}
	for _, job := range jobs {
		job := job
		err := resilience.Retry(ctx, "publish-chunk", d.retry, func() error {
			return d.breaker.Execute(func() error {
				return d.queue.Publish(ctx, job)
			})
		})
		if d.metrics != nil {
			d.metrics.CircuitBreakerState.WithLabelValues(d.breaker.Name()).
				Set(float64(d.breaker.GetState()))
		}
		if err != nil {
			if d.metrics != nil {
				d.metrics.QueuePublishErrorsTotal.Inc()
			}
			return cerrors.Chunk(job.Index, cerrors.ErrPublishFailed, "%v", err)
		}
		if d.metrics != nil {
			d.metrics.ChunksDispatchedTotal.Inc()
		}
		d.logger.Debug("job dispatched",
			"chunk", job.Index,
			"byte_start", job.Start,
			"byte_end", job.End,
			"sentence_offset", job.SentenceOffset,
		)
	}
	d.logger.Info("all chunks dispatched", "chunks", len(jobs))
	return nil
}
