package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/redis"
)

// RedisTracker keeps chunk state in Redis hashes, namespaced by run ID so
// concurrent runs against one Redis never collide. Workers write their own
// chunk's fields only; the hash layout needs no cross-chunk transactions.
type RedisTracker struct {
	client *redis.Client
	runID  string
}

// NewRedisTracker creates a tracker for the given run ID.
func NewRedisTracker(client *redis.Client, runID string) *RedisTracker {
	return &RedisTracker{client: client, runID: runID}
}

func (t *RedisTracker) key(suffix string) string {
	return fmt.Sprintf("concordance:%s:%s", t.runID, suffix)
}

func (t *RedisTracker) Register(ctx context.Context, total int) error {
	if err := t.client.Del(ctx,
		t.key("total"), t.key("complete"), t.key("failed"), t.key("attempts"),
	); err != nil {
		return fmt.Errorf("clearing previous run state: %w", err)
	}
	if err := t.client.Set(ctx, t.key("total"), total, 0); err != nil {
		return fmt.Errorf("registering %d chunks: %w", total, err)
	}
	return nil
}

func (t *RedisTracker) RecordAttempt(ctx context.Context, chunk int) (int, error) {
	n, err := t.client.HIncrBy(ctx, t.key("attempts"), strconv.Itoa(chunk), 1)
	if err != nil {
		return 0, fmt.Errorf("recording attempt for chunk %d: %w", chunk, err)
	}
	return int(n), nil
}

func (t *RedisTracker) MarkComplete(ctx context.Context, chunk, sentences int) error {
	if err := t.client.HSet(ctx, t.key("complete"), strconv.Itoa(chunk), sentences); err != nil {
		return fmt.Errorf("marking chunk %d complete: %w", chunk, err)
	}
	return nil
}

func (t *RedisTracker) MarkFailed(ctx context.Context, chunk int, reason string) error {
	if err := t.client.HSet(ctx, t.key("failed"), strconv.Itoa(chunk), reason); err != nil {
		return fmt.Errorf("marking chunk %d failed: %w", chunk, err)
	}
	return nil
}

func (t *RedisTracker) Snapshot(ctx context.Context) (Progress, error) {
	var p Progress

	totalStr, err := t.client.Get(ctx, t.key("total"))
	if err != nil {
		if redis.IsNilError(err) {
			return p, fmt.Errorf("run %s is not registered", t.runID)
		}
		return p, fmt.Errorf("reading chunk total: %w", err)
	}
	if p.Total, err = strconv.Atoi(totalStr); err != nil {
		return p, fmt.Errorf("parsing chunk total %q: %w", totalStr, err)
	}

	complete, err := t.client.HGetAll(ctx, t.key("complete"))
	if err != nil {
		return p, fmt.Errorf("reading completed chunks: %w", err)
	}
	for field, value := range complete {
		chunk, err := strconv.Atoi(field)
		if err != nil {
			return p, fmt.Errorf("parsing chunk field %q: %w", field, err)
		}
		sentences, err := strconv.Atoi(value)
		if err != nil {
			return p, fmt.Errorf("parsing sentence count %q: %w", value, err)
		}
		p.Completed = append(p.Completed, chunk)
		p.Sentences += sentences
	}
	sort.Ints(p.Completed)

	failed, err := t.client.HGetAll(ctx, t.key("failed"))
	if err != nil {
		return p, fmt.Errorf("reading failed chunks: %w", err)
	}
	p.Failed = make(map[int]string, len(failed))
	for field, reason := range failed {
		chunk, err := strconv.Atoi(field)
		if err != nil {
			return p, fmt.Errorf("parsing chunk field %q: %w", field, err)
		}
		p.Failed[chunk] = reason
	}
	return p, nil
}
