package memory

import (
	"context"
	"testing"
	"time"

	"quiz-progress-service/internal/domain"
)

func TestLeaderboardCacheCaches(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if _, err := store.AppendLeaderboardEntry(ctx, domain.LeaderboardRecord{
		UserID: "u1", Topic: "science", Score: 8, Percentage: 80, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	reader := &countingReader{inner: store}
	cache := NewLeaderboardCache(reader, time.Minute)

	rows, err := cache.QueryLeaderboard(ctx, "", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || reader.calls != 1 {
		t.Fatalf("expected one row from one store call, rows=%d calls=%d", len(rows), reader.calls)
	}

	if _, err := cache.QueryLeaderboard(ctx, "", 10); err != nil {
		t.Fatalf("query 2: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected cache hit, store calls %d", reader.calls)
	}

	// A different topic or limit is a separate cache entry.
	if _, err := cache.QueryLeaderboard(ctx, "science", 10); err != nil {
		t.Fatalf("query 3: %v", err)
	}
	if reader.calls != 2 {
		t.Fatalf("expected miss for new key, store calls %d", reader.calls)
	}
}

type countingReader struct {
	inner *Store
	calls int
}

func (r *countingReader) QueryLeaderboard(ctx context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error) {
	r.calls++
	return r.inner.QueryLeaderboard(ctx, topic, limit)
}
