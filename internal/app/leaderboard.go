package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-progress-service/internal/domain"
)

// DefaultLeaderboardLimit caps the leaderboard view when no limit is given.
const DefaultLeaderboardLimit = 20

// LeaderboardReader is the read side of the leaderboard collection. Satisfied
// by Store and by caching wrappers around it.
type LeaderboardReader interface {
	QueryLeaderboard(ctx context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error)
}

// Leaderboard returns the top entries, optionally filtered by topic (empty
// means all topics), ordered by percentage desc, score desc, createdAt desc,
// with 1-based contiguous ranks.
func Leaderboard(ctx context.Context, reader LeaderboardReader, topic string, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	records, err := reader.QueryLeaderboard(ctx, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query leaderboard: %v", domain.ErrPersistence, err)
	}

	SortLeaderboard(records)
	if len(records) > limit {
		records = records[:limit]
	}

	rows := make([]domain.LeaderboardRow, len(records))
	for i, r := range records {
		rows[i] = domain.LeaderboardRow{
			Rank:        i + 1,
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			Topic:       r.Topic,
			Score:       r.Score,
			Percentage:  r.Percentage,
			CreatedAt:   r.CreatedAt,
		}
	}
	return rows, nil
}

// SortLeaderboard orders records by percentage desc, then score desc, then
// creation time desc. Ties beyond that keep their stored order.
func SortLeaderboard(records []domain.LeaderboardRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Percentage != records[j].Percentage {
			return records[i].Percentage > records[j].Percentage
		}
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
