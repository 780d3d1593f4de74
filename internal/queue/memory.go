package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
)

// Memory is an in-process Queue for local single-binary runs and tests.
// A job whose handler fails is requeued after the redelivery delay, which
// models an unacknowledged message becoming visible again.
type Memory struct {
	ch     chan splitter.ChunkJob
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

// NewMemory creates an in-process queue with the given buffer capacity and
// redelivery delay.
func NewMemory(capacity int, redeliveryDelay time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	if redeliveryDelay <= 0 {
		redeliveryDelay = 50 * time.Millisecond
	}
	return &Memory{
		ch:     make(chan splitter.ChunkJob, capacity),
		delay:  redeliveryDelay,
		logger: slog.Default().With("component", "memory-queue"),
	}
}

// Publish enqueues a job, blocking if the buffer is full.
func (m *Memory) Publish(ctx context.Context, job splitter.ChunkJob) error {
	select {
	case m.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers jobs to handler until ctx is cancelled. Failed jobs are
// redelivered after the configured delay.
func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-m.ch:
			if err := handler(ctx, job); err != nil {
				m.logger.Warn("job failed, scheduling redelivery",
					"chunk", job.Index,
					"delay", m.delay,
					"error", err,
				)
				m.requeue(job)
			}
		}
	}
}

func (m *Memory) requeue(job splitter.ChunkJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	t := time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		m.ch <- job
	})
	m.timers = append(m.timers, t)
}

// Close stops pending redeliveries.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	return nil
}
