package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

// Wait polls the tracker until every chunk completes, any chunk fails
// permanently, or ctx expires. A permanent chunk failure is a chunk-stage
// error naming the chunks; running out of time while chunks are still
// pending is reported as a completion timeout, so callers can tell "failed"
// from "still waiting".
func Wait(ctx context.Context, t Tracker, poll time.Duration) (Progress, error) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	logger := slog.Default().With("component", "dispatch-wait")
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		progress, err := t.Snapshot(ctx)
		if err != nil {
			return progress, err
		}
		if len(progress.Failed) > 0 {
			failed := make([]int, 0, len(progress.Failed))
			for chunk := range progress.Failed {
				failed = append(failed, chunk)
			}
			sort.Ints(failed)
			return progress, cerrors.Chunk(failed[0], cerrors.ErrAttemptsExceeded,
				"chunks %v failed permanently", failed)
		}
		if progress.Done() {
			logger.Info("all chunks complete",
				"chunks", progress.Total,
				"sentences", progress.Sentences,
			)
			return progress, nil
		}
		logger.Debug("waiting for chunks",
			"complete", len(progress.Completed),
			"total", progress.Total,
		)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return progress, cerrors.Merge(cerrors.ErrCompletionTimeout,
				"%d of %d chunks complete, still waiting on %v",
				len(progress.Completed), progress.Total, progress.Pending())
		}
	}
}
