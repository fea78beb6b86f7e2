package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockTTL       = 10 * time.Second
	lockRetryWait = 25 * time.Millisecond
	lockAttempts  = 100
)

// ErrLockTimeout is returned when a user lock cannot be acquired within the
// retry budget.
var ErrLockTimeout = errors.New("user lock acquisition timed out")

// UserLocker serializes per-user result processing across instances with a
// Redis SET NX lock. The TTL bounds how long a crashed holder can block the
// user's next save.
type UserLocker struct {
	client *redis.Client
}

func NewUserLocker(client *redis.Client) *UserLocker {
	return &UserLocker{client: client}
}

func (l *UserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := "progress:lock:" + userID
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.client.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = l.client.Del(context.Background(), key).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	return nil, ErrLockTimeout
}
