package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptGuard is a Redis-backed at-most-once marker for the save path. The
// marker survives process restarts and is shared across instances, so a
// re-rendered or replayed save for the same attempt ID is skipped anywhere.
// Markers expire after ttl; a retry after that window writes duplicates, so
// the ttl should comfortably exceed the UI's retry horizon.
type AttemptGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptGuard(client *redis.Client, ttl time.Duration) *AttemptGuard {
	return &AttemptGuard{client: client, ttl: ttl}
}

func (g *AttemptGuard) Begin(ctx context.Context, attemptID string) (bool, error) {
	return g.client.SetNX(ctx, g.key(attemptID), "1", g.ttl).Result()
}

func (g *AttemptGuard) Release(ctx context.Context, attemptID string) error {
	return g.client.Del(ctx, g.key(attemptID)).Err()
}

func (g *AttemptGuard) key(attemptID string) string {
	return "progress:attempt:" + attemptID
}
