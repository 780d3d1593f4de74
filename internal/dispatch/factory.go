package dispatch

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/redis"
)

// NewTracker builds the progress tracker backend named by
// cfg.Coordinator.Tracker ("memory", "redis" or "postgres"), namespaced to
// runID. The returned close func releases the backing client.
func NewTracker(cfg *config.Config, runID string) (Tracker, func() error, error) {
	switch cfg.Coordinator.Tracker {
	case "", "memory":
		return NewMemoryTracker(), func() error { return nil }, nil
	case "redis":
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisTracker(client, runID), client.Close, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		tracker, err := NewPostgresTracker(client, runID)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return tracker, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown tracker backend %q", cfg.Coordinator.Tracker)
	}
}
