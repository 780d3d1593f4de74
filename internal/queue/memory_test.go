package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
)

func TestMemoryDeliversPublishedJobs(t *testing.T) {
	q := NewMemory(4, 10*time.Millisecond)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := []splitter.ChunkJob{
		{Index: 0, Start: 0, End: 10},
		{Index: 1, Start: 10, End: 20},
		{Index: 2, Start: 20, End: 30},
	}
	for _, job := range jobs {
		if err := q.Publish(ctx, job); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	var (
		mu   sync.Mutex
		seen []int
		done = make(chan struct{})
	)
	go q.Consume(ctx, func(_ context.Context, job splitter.ChunkJob) error {
		mu.Lock()
		seen = append(seen, job.Index)
		if len(seen) == len(jobs) {
			close(done)
		}
		mu.Unlock()
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not delivered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 2 {
		t.Errorf("delivery order = %v, want [0 1 2]", seen)
	}
}

// TestMemoryRedeliversFailedJobs fails a job once and checks it comes back
// after the redelivery delay.
func TestMemoryRedeliversFailedJobs(t *testing.T) {
	q := NewMemory(4, 5*time.Millisecond)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Publish(ctx, splitter.ChunkJob{Index: 0}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var (
		mu       sync.Mutex
		attempts int
		done     = make(chan struct{})
	)
	go q.Consume(ctx, func(_ context.Context, job splitter.ChunkJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not redelivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestMemoryConsumeStopsOnCancel(t *testing.T) {
	q := NewMemory(1, time.Millisecond)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Consume(ctx, func(context.Context, splitter.ChunkJob) error { return nil })
	if err != nil {
		t.Fatalf("Consume after cancel = %v, want nil", err)
	}
}
