// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Pipeline, Chunking, Worker, Store, Merge, Kafka, Redis, Postgres,
// Coordinator, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Worker      WorkerConfig      `yaml:"worker"`
	Store       StoreConfig       `yaml:"store"`
	Merge       MergeConfig       `yaml:"merge"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PipelineConfig holds paths shared by every stage.
type PipelineConfig struct {
	// DataDir is where per-chunk partial stores and intermediate merge
	// stores are created.
	DataDir string `yaml:"dataDir"`
	// KeepStores retains chunk stores after a successful merge instead of
	// deleting them. Useful for debugging and recovery.
	KeepStores bool `yaml:"keepStores"`
}

// ChunkingConfig controls how the splitter divides a document.
type ChunkingConfig struct {
	// TargetChunks is the desired number of chunks. When zero, the chunk
	// count is derived from TargetChunkBytes.
	TargetChunks int `yaml:"targetChunks"`
	// TargetChunkBytes is the desired chunk size in bytes, used when
	// TargetChunks is zero.
	TargetChunkBytes int64 `yaml:"targetChunkBytes"`
	// BoundaryLookaheadBytes bounds how far past the target size the
	// splitter may scan for a sentence boundary before failing.
	BoundaryLookaheadBytes int64 `yaml:"boundaryLookaheadBytes"`
}

// WorkerConfig controls chunk-processing parallelism and the retry budget.
type WorkerConfig struct {
	// Count is the parallelism degree: the number of concurrent chunk
	// workers in local mode.
	Count int `yaml:"count"`
	// MaxAttempts bounds how many times a single chunk may be attempted
	// (including redeliveries) before it is marked permanently failed.
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

// StoreConfig controls the per-chunk SQLite partial stores.
type StoreConfig struct {
	// BatchSize is the number of word occurrences buffered before a
	// transactional bulk insert.
	BatchSize int `yaml:"batchSize"`
}

// MergeConfig controls the k-way merge stage.
type MergeConfig struct {
	// MaxOpenStores is the ceiling on simultaneously open chunk stores.
	// When the chunk count exceeds it, stores are merged in batches into
	// intermediate stores, recursively.
	MaxOpenStores int `yaml:"maxOpenStores"`
	// BatchParallelism bounds how many batch merges run concurrently.
	BatchParallelism int `yaml:"batchParallelism"`
}

// CoordinatorConfig controls how the coordinator tracks and awaits chunk
// completion in distributed mode.
type CoordinatorConfig struct {
	// Tracker selects the completion ledger backend: memory, redis, or
	// postgres.
	Tracker           string        `yaml:"tracker"`
	PollInterval      time.Duration `yaml:"pollInterval"`
	CompletionTimeout time.Duration `yaml:"completionTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ChunkJobs string `yaml:"chunkJobs"`
}

// RedisConfig holds Redis connection parameters for the completion tracker.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the chunk ledger.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with workable defaults for local runs.
func defaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DataDir: "data/concordance",
		},
		Chunking: ChunkingConfig{
			TargetChunkBytes:       1 << 20,
			BoundaryLookaheadBytes: 64 << 10,
		},
		Worker: WorkerConfig{
			Count:       4,
			MaxAttempts: 3,
			RetryDelay:  200 * time.Millisecond,
		},
		Store: StoreConfig{
			BatchSize: 2500,
		},
		Merge: MergeConfig{
			MaxOpenStores:    8,
			BatchParallelism: 2,
		},
		Coordinator: CoordinatorConfig{
			Tracker:           "redis",
			PollInterval:      500 * time.Millisecond,
			CompletionTimeout: 30 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "concordance-workers",
			Topics: KafkaTopics{
				ChunkJobs: "concordance.chunk-jobs",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "concordance",
			User:            "concordance",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CONC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONC_DATA_DIR"); v != "" {
		cfg.Pipeline.DataDir = v
	}
	if v := os.Getenv("CONC_TARGET_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.TargetChunks = n
		}
	}
	if v := os.Getenv("CONC_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Count = n
		}
	}
	if v := os.Getenv("CONC_WORKER_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxAttempts = n
		}
	}
	if v := os.Getenv("CONC_TRACKER"); v != "" {
		cfg.Coordinator.Tracker = v
	}
	if v := os.Getenv("CONC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CONC_KAFKA_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("CONC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CONC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CONC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CONC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CONC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CONC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CONC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CONC_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CONC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CONC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
