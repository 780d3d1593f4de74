// Command concordance runs the whole pipeline in one process: it splits the
// input document, processes chunks on an in-memory queue with a local worker
// pool, merges the chunk stores and writes the alphabetical concordance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, defaults apply)")
	input := flag.String("input", "", "path to the document to analyze")
	output := flag.String("output", "concordance.txt", "path for the concordance output")
	chunks := flag.Int("chunks", 0, "override the number of chunks")
	workers := flag.Int("workers", 0, "override the worker pool size")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: concordance -input <document> [-output <file>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *chunks > 0 {
		cfg.Chunking.TargetChunks = *chunks
	}
	if *workers > 0 {
		cfg.Worker.Count = *workers
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.New(cfg, nil).Run(ctx, *input, *output)
	if err != nil {
		slog.Error("pipeline failed", "stage", cerrors.StageOf(err), "error", err)
		os.Exit(cerrors.ExitCode(err))
	}

	fmt.Printf("success!!\n\nAnalyzed %d sentences in %.2f seconds.\n",
		summary.Sentences, summary.Duration.Seconds())
}
