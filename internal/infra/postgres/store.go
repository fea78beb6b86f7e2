package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-progress-service/internal/domain"
)

// Store implements app.Store on Postgres. UserStats lives as a JSONB document
// per user so upserts can merge with || and leave fields outside this flow
// untouched; results keep a JSONB snapshot next to the columns the history
// queries filter on; badges carry a (user_id, name) primary key so an award
// insert is conditional on the name at the database level.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (domain.UserStats, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM user_stats WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, fmt.Errorf("get user stats: %w", err)
	}
	var stats domain.UserStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.UserStats{}, false, fmt.Errorf("unmarshal user stats: %w", err)
	}
	return stats, true, nil
}

func (s *Store) UpsertUserStats(ctx context.Context, userID string, stats domain.UserStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal user stats: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (user_id) DO UPDATE SET data = user_stats.data || EXCLUDED.data`,
		userID, data)
	if err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}
	return nil
}

func (s *Store) AppendResult(ctx context.Context, userID string, record domain.ResultRecord) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO results (user_id, topic, percentage, created_at, data)
		VALUES ($1, $2, $3, $4, $5::jsonb) RETURNING id`,
		userID, record.Topic, record.Percentage, record.CreatedAt, data).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("append result: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) AppendLeaderboardEntry(ctx context.Context, record domain.LeaderboardRecord) (string, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO leaderboard (user_id, display_name, topic, score, percentage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		record.UserID, record.DisplayName, record.Topic, record.Score, record.Percentage, record.CreatedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("append leaderboard entry: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) ListBadgeNames(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM badges WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list badge names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan badge name: %w", err)
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

func (s *Store) ListBadges(ctx context.Context, userID string) ([]domain.Badge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, description, earned_at FROM badges
		WHERE user_id=$1 ORDER BY earned_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		var b domain.Badge
		if err := rows.Scan(&b.Name, &b.Description, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *Store) AppendBadge(ctx context.Context, userID string, badge domain.Badge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO badges (user_id, name, description, earned_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (user_id, name) DO NOTHING`,
		userID, badge.Name, badge.Description, badge.EarnedAt)
	if err != nil {
		return fmt.Errorf("append badge: %w", err)
	}
	return nil
}

func (s *Store) ListRecentResults(ctx context.Context, userID string, limit int) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM results WHERE user_id=$1
		ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *Store) ListResultsByTopic(ctx context.Context, userID, topic string) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM results WHERE user_id=$1 AND topic=$2
		ORDER BY created_at DESC, id DESC`, userID, topic)
	if err != nil {
		return nil, fmt.Errorf("list results by topic: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *Store) QueryLeaderboard(ctx context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error) {
	query := `
		SELECT user_id, display_name, topic, score, percentage, created_at FROM leaderboard
		WHERE ($1 = '' OR topic = $1)
		ORDER BY percentage DESC, score DESC, created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []domain.LeaderboardRecord
	for rows.Next() {
		var r domain.LeaderboardRecord
		if err := rows.Scan(&r.UserID, &r.DisplayName, &r.Topic, &r.Score, &r.Percentage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanResults(rows pgx.Rows) ([]domain.ResultRecord, error) {
	var records []domain.ResultRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var record domain.ResultRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
