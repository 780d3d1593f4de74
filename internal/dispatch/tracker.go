// Package dispatch publishes chunk jobs onto the work queue and tracks which
// chunks have completed. The completion Tracker is the coordination store the
// merge stage polls: workers write one durable record per finished chunk, and
// the dispatcher side only ever reads.
package dispatch

import (
	"context"
	"sort"
	"sync"
)

// Progress is a point-in-time view of chunk completion.
type Progress struct {
	Total     int
	Completed []int          // chunk indices marked complete, ascending
	Failed    map[int]string // chunk index -> failure reason
	Sentences int            // sum of completed chunks' sentence counts
}

// Done reports whether every registered chunk has completed.
func (p Progress) Done() bool {
	return p.Total > 0 && len(p.Completed) == p.Total
}

// Pending returns the chunk indices not yet complete or failed.
func (p Progress) Pending() []int {
	seen := make(map[int]bool, len(p.Completed)+len(p.Failed))
	for _, c := range p.Completed {
		seen[c] = true
	}
	for c := range p.Failed {
		seen[c] = true
	}
	var pending []int
	for c := 0; c < p.Total; c++ {
		if !seen[c] {
			pending = append(pending, c)
		}
	}
	return pending
}

// Tracker is the durable, concurrently-updatable record of chunk state.
// Register is called once per run by the dispatcher; workers record attempts
// and terminal outcomes; the merge stage polls Snapshot.
type Tracker interface {
	Register(ctx context.Context, total int) error
	// RecordAttempt increments and returns the chunk's attempt count.
	RecordAttempt(ctx context.Context, chunk int) (int, error)
	MarkComplete(ctx context.Context, chunk, sentences int) error
	MarkFailed(ctx context.Context, chunk int, reason string) error
	Snapshot(ctx context.Context) (Progress, error)
}

// MemoryTracker is the in-process Tracker for local single-binary runs.
type MemoryTracker struct {
	mu        sync.Mutex
	total     int
	complete  map[int]int // chunk -> sentences
	failed    map[int]string
	attempts  map[int]int
}

// NewMemoryTracker creates an empty in-process tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		complete: make(map[int]int),
		failed:   make(map[int]string),
		attempts: make(map[int]int),
	}
}

func (t *MemoryTracker) Register(ctx context.Context, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.complete = make(map[int]int)
	t.failed = make(map[int]string)
	t.attempts = make(map[int]int)
	return nil
}

func (t *MemoryTracker) RecordAttempt(ctx context.Context, chunk int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[chunk]++
	return t.attempts[chunk], nil
}

func (t *MemoryTracker) MarkComplete(ctx context.Context, chunk, sentences int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.complete[chunk] = sentences
	delete(t.failed, chunk)
	return nil
}

func (t *MemoryTracker) MarkFailed(ctx context.Context, chunk int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed[chunk] = reason
	return nil
}

func (t *MemoryTracker) Snapshot(ctx context.Context) (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{
		Total:  t.total,
		Failed: make(map[int]string, len(t.failed)),
	}
	for chunk, sentences := range t.complete {
		p.Completed = append(p.Completed, chunk)
		p.Sentences += sentences
	}
	sort.Ints(p.Completed)
	for chunk, reason := range t.failed {
		p.Failed[chunk] = reason
	}
	return p, nil
}
