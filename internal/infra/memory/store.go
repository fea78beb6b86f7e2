package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"quiz-progress-service/internal/domain"
)

// Store is an in-memory implementation of app.Store, useful for tests and
// for running the service without a database.
type Store struct {
	mu          sync.RWMutex
	stats       map[string]domain.UserStats
	results     map[string][]domain.ResultRecord
	badges      map[string][]domain.Badge
	leaderboard []domain.LeaderboardRecord
	nextID      int
}

func NewStore() *Store {
	return &Store{
		stats:   make(map[string]domain.UserStats),
		results: make(map[string][]domain.ResultRecord),
		badges:  make(map[string][]domain.Badge),
	}
}

func (s *Store) GetUserStats(_ context.Context, userID string) (domain.UserStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[userID]
	return stats, ok, nil
}

func (s *Store) UpsertUserStats(_ context.Context, userID string, stats domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[userID] = stats
	return nil
}

func (s *Store) AppendResult(_ context.Context, userID string, record domain.ResultRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[userID] = append(s.results[userID], record)
	return s.newID(), nil
}

func (s *Store) AppendLeaderboardEntry(_ context.Context, record domain.LeaderboardRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = append(s.leaderboard, record)
	return s.newID(), nil
}

func (s *Store) ListBadgeNames(_ context.Context, userID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]struct{}, len(s.badges[userID]))
	for _, b := range s.badges[userID] {
		names[b.Name] = struct{}{}
	}
	return names, nil
}

func (s *Store) ListBadges(_ context.Context, userID string) ([]domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Badge(nil), s.badges[userID]...), nil
}

func (s *Store) AppendBadge(_ context.Context, userID string, badge domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Name is the de-duplication key, mirroring the unique constraint a
	// database-backed store enforces.
	for _, existing := range s.badges[userID] {
		if existing.Name == badge.Name {
			return nil
		}
	}
	s.badges[userID] = append(s.badges[userID], badge)
	return nil
}

func (s *Store) ListRecentResults(_ context.Context, userID string, limit int) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := append([]domain.ResultRecord(nil), s.results[userID]...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) ListResultsByTopic(_ context.Context, userID, topic string) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []domain.ResultRecord
	for _, r := range s.results[userID] {
		if r.Topic == topic {
			records = append(records, r)
		}
	}
	return records, nil
}

func (s *Store) QueryLeaderboard(_ context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []domain.LeaderboardRecord
	for _, r := range s.leaderboard {
		if topic == "" || r.Topic == topic {
			records = append(records, r)
		}
	}
	sortLeaderboard(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func sortLeaderboard(records []domain.LeaderboardRecord) {
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

func (s *Store) newID() string {
	s.nextID++
	return "mem-" + strconv.Itoa(s.nextID)
}
