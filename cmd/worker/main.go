// Command worker consumes chunk jobs from Kafka and builds per-chunk word
// stores on a shared data directory. Progress is reported through the
// configured tracker backend so the coordinator can observe completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/queue"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "path to the shared document")
	runID := flag.String("run", "default", "run identifier shared with the coordinator")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: worker -input <document> [-run <id>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting concordance worker", "run", *runID, "document", *input)

	tracker, closeTracker, err := dispatch.NewTracker(cfg, *runID)
	if err != nil {
		slog.Error("failed to create tracker", "backend", cfg.Coordinator.Tracker, "error", err)
		os.Exit(1)
	}
	defer closeTracker()

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("data_dir", dataDirCheck(cfg.Pipeline.DataDir))
		if cfg.Coordinator.Tracker == "redis" {
			checker.Register("redis", redisCheck(cfg.Redis))
		}
		shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
		defer shutdown(context.Background())
	}

	w := worker.New(worker.Config{
		DocumentPath:   *input,
		DataDir:        cfg.Pipeline.DataDir,
		MaxAttempts:    cfg.Worker.MaxAttempts,
		StoreBatchSize: cfg.Store.BatchSize,
	}, segmenter.New(), tracker, m)

	q := queue.NewKafka(cfg.Kafka)
	defer q.Close()

	slog.Info("worker ready, consuming chunk jobs",
		"topic", cfg.Kafka.Topics.ChunkJobs,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := q.Consume(ctx, w.Handler()); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("worker stopped")
}

func dataDirCheck(dir string) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}

func redisCheck(cfg config.RedisConfig) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		start := time.Now()
		client, err := redis.NewClient(cfg)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Latency: time.Since(start).String(),
		}
	}
}
