// Package worker consumes chunk jobs and builds each chunk's ordered partial
// store. Processing is idempotent with respect to store content: every
// attempt resets the store and repopulates it from scratch, so a redelivered
// job can never double count.
package worker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/store"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
)

// Config holds the worker's document and store settings.
type Config struct {
	DocumentPath   string
	DataDir        string
	MaxAttempts    int
	StoreBatchSize int
}

// Result summarises one successfully processed chunk.
type Result struct {
	Chunk     int
	Sentences int
	Words     int
	StorePath string
}

// Worker processes chunk jobs into per-chunk stores.
type Worker struct {
	cfg     Config
	seg     segmenter.Segmenter
	tracker dispatch.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Worker. metrics may be nil.
func New(cfg Config, seg segmenter.Segmenter, tracker dispatch.Tracker, m *metrics.Metrics) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		cfg:     cfg,
		seg:     seg,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "worker"),
	}
}

// Handler adapts the worker to the queue contract, enforcing the per-chunk
// attempt budget. A failure inside the budget leaves the job unacknowledged
// (the queue redelivers); exhausting the budget records a permanent failure
// and acknowledges, so the poison job stops circulating.
func (w *Worker) Handler() queue.Handler {
	return func(ctx context.Context, job splitter.ChunkJob) error {
		ctx = logger.WithChunk(ctx, job.Index)
		attempts, err := w.tracker.RecordAttempt(ctx, job.Index)
		if err != nil {
			return err
		}
		if w.metrics != nil {
			w.metrics.ChunkAttemptsTotal.Inc()
		}

		start := time.Now()
		result, err := w.Process(ctx, job)
		if err != nil {
			w.logger.Error("chunk processing failed",
				"chunk", job.Index,
				"attempt", attempts,
				"max_attempts", w.cfg.MaxAttempts,
				"error", err,
			)
			if attempts >= w.cfg.MaxAttempts {
				if w.metrics != nil {
					w.metrics.ChunksFailedTotal.Inc()
				}
				if markErr := w.tracker.MarkFailed(ctx, job.Index, err.Error()); markErr != nil {
					return markErr
				}
				return nil
			}
			return err
		}

		if err := w.tracker.MarkComplete(ctx, job.Index, result.Sentences); err != nil {
			return err
		}
		if w.metrics != nil {
			w.metrics.ChunksCompletedTotal.Inc()
			w.metrics.ChunkProcessingDuration.Observe(time.Since(start).Seconds())
			w.metrics.SentencesProcessedTotal.Add(float64(result.Sentences))
			w.metrics.WordsUpsertedTotal.Add(float64(result.Words))
		}
		w.logger.Info("chunk complete",
			"chunk", job.Index,
			"sentences", result.Sentences,
			"words", result.Words,
			"duration", time.Since(start).Round(time.Millisecond),
		)
		return nil
	}
}

// Process reads the job's byte span, segments it, and rebuilds the chunk's
// store from scratch, marking it complete on success. Global sentence
// numbers are job.SentenceOffset plus the 1-based local index.
func (w *Worker) Process(ctx context.Context, job splitter.ChunkJob) (Result, error) {
	text, err := w.readSpan(job)
	if err != nil {
		return Result{}, cerrors.Chunk(job.Index, cerrors.ErrDocumentUnreadable,
			"reading bytes [%d,%d): %v", job.Start, job.End, err)
	}

	sentences, err := w.seg.Sentences(text)
	if err != nil {
		return Result{}, cerrors.Chunk(job.Index, cerrors.ErrSegmenter, "%v", err)
	}
	logger.FromContext(ctx).Debug("chunk segmented",
		"bytes", job.End-job.Start,
		"sentences", len(sentences),
	)

	st, err := store.Open(store.ChunkPath(w.cfg.DataDir, job.Index), job.Index, w.cfg.StoreBatchSize)
	if err != nil {
		return Result{}, cerrors.Chunk(job.Index, cerrors.ErrStoreWrite, "%v", err)
	}
	defer st.Close()
	if err := st.Reset(); err != nil {
		return Result{}, cerrors.Chunk(job.Index, cerrors.ErrStoreWrite, "%v", err)
	}

	words := 0
	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return Result{}, cerrors.Chunk(job.Index, cerrors.ErrStoreWrite, "cancelled: %v", err)
		}
		globalSentence := job.SentenceOffset + i + 1
		for _, token := range w.seg.Tokens(sentence) {
			if err := st.Upsert(token, globalSentence); err != nil {
				return Result{}, cerrors.Chunk(job.Index, cerrors.ErrStoreWrite, "%v", err)
			}
			words++
		}
	}
	if err := st.MarkComplete(len(sentences)); err != nil {
		return Result{}, cerrors.Chunk(job.Index, cerrors.ErrStoreWrite, "%v", err)
	}

	return Result{
		Chunk:     job.Index,
		Sentences: len(sentences),
		Words:     words,
		StorePath: st.Path(),
	}, nil
}

func (w *Worker) readSpan(job splitter.ChunkJob) (string, error) {
	f, err := os.Open(w.cfg.DocumentPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.NewSectionReader(f, job.Start, job.End-job.Start))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
