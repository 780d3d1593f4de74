package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

func TestMemoryTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	if err := tr.Register(ctx, 3); err != nil {
		t.Fatalf("register: %v", err)
	}

	for want := 1; want <= 2; want++ {
		got, err := tr.RecordAttempt(ctx, 1)
		if err != nil {
			t.Fatalf("record attempt: %v", err)
		}
		if got != want {
			t.Errorf("attempt count = %d, want %d", got, want)
		}
	}

	if err := tr.MarkComplete(ctx, 0, 5); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	if err := tr.MarkComplete(ctx, 2, 7); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	if err := tr.MarkFailed(ctx, 1, "segmenter blew up"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	p, err := tr.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.Total != 3 || p.Sentences != 12 {
		t.Errorf("snapshot = %+v, want total 3 sentences 12", p)
	}
	if !reflect.DeepEqual(p.Completed, []int{0, 2}) {
		t.Errorf("completed = %v, want [0 2]", p.Completed)
	}
	if p.Failed[1] != "segmenter blew up" {
		t.Errorf("failed = %v", p.Failed)
	}
	if p.Done() {
		t.Error("run reported done with a failed chunk outstanding")
	}
	if !reflect.DeepEqual(p.Pending(), []int(nil)) {
		t.Errorf("pending = %v, want none", p.Pending())
	}
}

// TestMemoryTrackerCompleteClearsFailure covers a chunk that fails then
// succeeds on redelivery.
func TestMemoryTrackerCompleteClearsFailure(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()
	tr.Register(ctx, 1)

	tr.MarkFailed(ctx, 0, "transient")
	tr.MarkComplete(ctx, 0, 4)

	p, _ := tr.Snapshot(ctx)
	if len(p.Failed) != 0 {
		t.Errorf("failure not cleared: %v", p.Failed)
	}
	if !p.Done() {
		t.Error("run not done after the only chunk completed")
	}
}

func TestDispatchPublishesEveryChunk(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(8, time.Millisecond)
	defer q.Close()
	tr := NewMemoryTracker()

	jobs := []splitter.ChunkJob{{Index: 0}, {Index: 1}, {Index: 2}}
	if err := New(q, tr, nil).Dispatch(ctx, jobs); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	p, _ := tr.Snapshot(ctx)
	if p.Total != 3 {
		t.Errorf("registered total = %d, want 3", p.Total)
	}

	cctx, cancel := context.WithCancel(ctx)
	seen := make(chan int, 3)
	go q.Consume(cctx, func(_ context.Context, job splitter.ChunkJob) error {
		seen <- job.Index
		return nil
	})
	for i := 0; i < 3; i++ {
		select {
		case <-seen:
		case <-time.After(2 * time.Second):
			t.Fatal("published jobs not delivered")
		}
	}
	cancel()
}

type failingQueue struct{}

func (failingQueue) Publish(context.Context, splitter.ChunkJob) error {
	return errors.New("broker unreachable")
}
func (failingQueue) Consume(context.Context, queue.Handler) error { return nil }
func (failingQueue) Close() error                                 { return nil }

func TestDispatchReportsPublishFailure(t *testing.T) {
	err := New(failingQueue{}, NewMemoryTracker(), nil).
		Dispatch(context.Background(), []splitter.ChunkJob{{Index: 4}})
	if !errors.Is(err, cerrors.ErrPublishFailed) {
		t.Fatalf("got %v, want ErrPublishFailed", err)
	}
	if cerrors.ChunkOf(err) != 4 {
		t.Errorf("chunk = %d, want 4", cerrors.ChunkOf(err))
	}
	if cerrors.ExitCode(err) != 3 {
		t.Errorf("exit code = %d, want 3", cerrors.ExitCode(err))
	}
}

func TestWaitReturnsWhenAllComplete(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()
	tr.Register(ctx, 2)
	tr.MarkComplete(ctx, 0, 3)

	go func() {
		time.Sleep(20 * time.Millisecond)
		tr.MarkComplete(ctx, 1, 4)
	}()

	p, err := Wait(ctx, tr, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !p.Done() || p.Sentences != 7 {
		t.Errorf("progress = %+v, want done with 7 sentences", p)
	}
}

func TestWaitFailsOnPermanentChunkFailure(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()
	tr.Register(ctx, 2)
	tr.MarkFailed(ctx, 1, "attempts exhausted")

	_, err := Wait(ctx, tr, 5*time.Millisecond)
	if !errors.Is(err, cerrors.ErrAttemptsExceeded) {
		t.Fatalf("got %v, want ErrAttemptsExceeded", err)
	}
	if cerrors.ChunkOf(err) != 1 {
		t.Errorf("chunk = %d, want 1", cerrors.ChunkOf(err))
	}
}

// TestWaitTimesOutWhileChunksPending distinguishes "out of time" from
// "failed": the error is a completion timeout, not a chunk failure.
func TestWaitTimesOutWhileChunksPending(t *testing.T) {
	tr := NewMemoryTracker()
	tr.Register(context.Background(), 2)
	tr.MarkComplete(context.Background(), 0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Wait(ctx, tr, 5*time.Millisecond)
	if !errors.Is(err, cerrors.ErrCompletionTimeout) {
		t.Fatalf("got %v, want ErrCompletionTimeout", err)
	}
}
