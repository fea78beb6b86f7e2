package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
)

// LeaderboardCache caches leaderboard queries with TTL to keep the read side
// off the store on every page view.
type LeaderboardCache struct {
	reader app.LeaderboardReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBoard
}

type cachedBoard struct {
	records   []domain.LeaderboardRecord
	expiresAt time.Time
}

func NewLeaderboardCache(reader app.LeaderboardReader, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		reader: reader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBoard),
	}
}

func (c *LeaderboardCache) QueryLeaderboard(ctx context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error) {
	key := topic + "|" + strconv.Itoa(limit)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.records, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.records, nil
		}
		c.mu.RUnlock()

		records, err := c.reader.QueryLeaderboard(ctx, topic, limit)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedBoard{
			records:   records,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardRecord), nil
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
