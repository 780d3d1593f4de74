// Command coordinator drives a distributed run: it splits the input
// document, publishes chunk jobs to Kafka, waits for the worker fleet to
// complete every chunk through the tracker backend, then merges the chunk
// stores from the shared data directory and writes the concordance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/merge"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "path to the document to analyze")
	output := flag.String("output", "concordance.txt", "path for the concordance output")
	runID := flag.String("run", "default", "run identifier shared with the workers")
	chunks := flag.Int("chunks", 0, "override the number of chunks")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: coordinator -input <document> [-output <file>] [-run <id>]")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *chunks > 0 {
		cfg.Chunking.TargetChunks = *chunks
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting coordinator", "run", *runID, "document", *input)
	start := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := splitter.Split(*input, splitter.Options{
		TargetChunks:     cfg.Chunking.TargetChunks,
		TargetChunkBytes: cfg.Chunking.TargetChunkBytes,
		LookaheadBytes:   cfg.Chunking.BoundaryLookaheadBytes,
	})
	if err != nil {
		slog.Error("split failed", "error", err)
		return cerrors.ExitCode(err)
	}
	slog.Info("document split", "chunks", len(jobs))

	tracker, closeTracker, err := dispatch.NewTracker(cfg, *runID)
	if err != nil {
		slog.Error("failed to create tracker", "backend", cfg.Coordinator.Tracker, "error", err)
		return 1
	}
	defer closeTracker()

	m := metrics.New()

	q := queue.NewKafka(cfg.Kafka)
	defer q.Close()

	if err := dispatch.New(q, tracker, m).Dispatch(ctx, jobs); err != nil {
		slog.Error("dispatch failed", "error", err)
		return cerrors.ExitCode(err)
	}
	slog.Info("chunk jobs published",
		"topic", cfg.Kafka.Topics.ChunkJobs,
		"chunks", len(jobs),
	)

	waitCtx := ctx
	if cfg.Coordinator.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Coordinator.CompletionTimeout)
		defer cancel()
	}
	progress, err := dispatch.Wait(waitCtx, tracker, cfg.Coordinator.PollInterval)
	if err != nil {
		slog.Error("run did not complete", "error", err)
		return cerrors.ExitCode(err)
	}

	chunkPaths := make([]string, len(jobs))
	for i := range jobs {
		chunkPaths[i] = store.ChunkPath(cfg.Pipeline.DataDir, i)
	}
	finalPath := filepath.Join(cfg.Pipeline.DataDir, "concordance.db")
	final, err := merge.New(cfg.Pipeline.DataDir, cfg.Merge, cfg.Store.BatchSize, m).
		Run(ctx, chunkPaths, finalPath)
	if err != nil {
		slog.Error("merge failed", "error", err)
		return cerrors.ExitCode(err)
	}
	words, err := merge.Export(final, *output)
	final.Close()
	if err != nil {
		slog.Error("export failed", "error", err)
		return cerrors.ExitCode(err)
	}

	if !cfg.Pipeline.KeepStores {
		for _, path := range chunkPaths {
			os.Remove(path)
		}
		os.Remove(finalPath)
	}

	slog.Info("concordance written", "path", *output, "words", words)
	fmt.Printf("success!!\n\nAnalyzed %d sentences in %.2f seconds.\n",
		progress.Sentences, time.Since(start).Seconds())
	return 0
}
