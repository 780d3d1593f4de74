package queue

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/kafka"
)

// Kafka adapts the Kafka producer/consumer pair to the Queue contract for
// distributed deployments. Jobs are keyed by chunk index so a chunk always
// lands on the same partition, and acknowledgement maps to an offset commit.
type Kafka struct {
	cfg      config.KafkaConfig
	topic    string
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafka creates a Kafka-backed queue on the configured chunk-jobs topic.
func NewKafka(cfg config.KafkaConfig) *Kafka {
	return &Kafka{
		cfg:      cfg,
		topic:    cfg.Topics.ChunkJobs,
		producer: kafka.NewProducer(cfg, cfg.Topics.ChunkJobs),
		logger:   slog.Default().With("component", "kafka-queue", "topic", cfg.Topics.ChunkJobs),
	}
}

// Publish writes the job to the chunk-jobs topic.
func (k *Kafka) Publish(ctx context.Context, job splitter.ChunkJob) error {
	return k.producer.Publish(ctx, kafka.Event{
		Key:   strconv.Itoa(job.Index),
		Value: job,
	})
}

// Consume joins the consumer group and delivers decoded jobs to handler.
// Malformed messages are logged and committed rather than redelivered
// forever.
func (k *Kafka) Consume(ctx context.Context, handler Handler) error {
	consumer := kafka.NewConsumer(k.cfg, k.topic, func(ctx context.Context, key, value []byte) error {
		job, err := kafka.DecodeJSON[splitter.ChunkJob](value)
		if err != nil {
			k.logger.Error("dropping undecodable job", "key", string(key), "error", err)
			return nil
		}
		return handler(ctx, job)
	})
	return consumer.Start(ctx)
}

// Close flushes and closes the producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
