// Package pipeline runs the whole concordance flow inside one process: the
// document is split into sentence-aligned chunks, the chunk jobs go through
// an in-memory queue to a pool of workers building per-chunk stores, and the
// completed stores are merged and exported as the alphabetical concordance.
// The stages use the same components the distributed binaries use, only the
// queue and tracker are swapped for in-memory ones.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/merge"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
)

// Summary reports what a completed run processed.
type Summary struct {
	Chunks    int
	Sentences int
	Words     int
	Duration  time.Duration
}

// Pipeline is the single-process runner.
type Pipeline struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Pipeline. metrics may be nil.
func New(cfg *config.Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("pipeline"),
	}
}

// Run processes inputPath and writes the concordance to outputPath.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (Summary, error) {
	start := time.Now()

	jobs, err := splitter.Split(inputPath, splitter.Options{
		TargetChunks:     p.cfg.Chunking.TargetChunks,
		TargetChunkBytes: p.cfg.Chunking.TargetChunkBytes,
		LookaheadBytes:   p.cfg.Chunking.BoundaryLookaheadBytes,
	})
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info("document split", "path", inputPath, "chunks", len(jobs))

	dataDir := p.cfg.Pipeline.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Summary{}, err
	}

	q := queue.NewMemory(len(jobs), p.cfg.Worker.RetryDelay)
	defer q.Close()
	tracker := dispatch.NewMemoryTracker()

	if err := dispatch.New(q, tracker, p.metrics).Dispatch(ctx, jobs); err != nil {
		return Summary{}, err
	}

	w := worker.New(worker.Config{
		DocumentPath:   inputPath,
		DataDir:        dataDir,
		MaxAttempts:    p.cfg.Worker.MaxAttempts,
		StoreBatchSize: p.cfg.Store.BatchSize,
	}, segmenter.New(), tracker, p.metrics)

	workers := p.cfg.Worker.Count
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	wctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(wctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return q.Consume(gctx, w.Handler())
		})
	}

	waitCtx := ctx
	if p.cfg.Coordinator.CompletionTimeout > 0 {
		var waitCancel context.CancelFunc
		waitCtx, waitCancel = context.WithTimeout(ctx, p.cfg.Coordinator.CompletionTimeout)
		defer waitCancel()
	}
	progress, waitErr := dispatch.Wait(waitCtx, tracker, p.cfg.Coordinator.PollInterval)
	cancel()
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if waitErr != nil {
		return Summary{}, waitErr
	}

	chunkPaths := make([]string, len(jobs))
	for i := range jobs {
		chunkPaths[i] = store.ChunkPath(dataDir, i)
	}
	finalPath := filepath.Join(dataDir, "concordance.db")
	final, err := merge.New(dataDir, p.cfg.Merge, p.cfg.Store.BatchSize, p.metrics).Run(ctx, chunkPaths, finalPath)
	if err != nil {
		return Summary{}, err
	}
	words, err := merge.Export(final, outputPath)
	final.Close()
	if err != nil {
		return Summary{}, err
	}

	if !p.cfg.Pipeline.KeepStores {
		for _, path := range chunkPaths {
			os.Remove(path)
		}
		os.Remove(finalPath)
	}

	summary := Summary{
		Chunks:    len(jobs),
		Sentences: progress.Sentences,
		Words:     words,
		Duration:  time.Since(start),
	}
	p.logger.Info("pipeline complete",
		"chunks", summary.Chunks,
		"sentences", summary.Sentences,
		"words", summary.Words,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}
