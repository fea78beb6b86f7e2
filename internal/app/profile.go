package app

import (
	"context"
	"fmt"

	"quiz-progress-service/internal/domain"
)

const profileRecentLimit = 10

// Profile is the read-side view of one user's progression.
type Profile struct {
	Stats  domain.UserStats      `json:"stats"`
	Badges []domain.Badge        `json:"badges"`
	Recent []domain.ResultRecord `json:"recent"`
	IsNew  bool                  `json:"isNew"`
}

// LoadProfile assembles stats, badges, and recent results for one user. A
// user with no history gets zero-valued stats and IsNew set.
func (s *ProgressionService) LoadProfile(ctx context.Context, userID string) (Profile, error) {
	stats, found, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: read stats: %v", domain.ErrPersistence, err)
	}
	if !found {
		stats = domain.UserStats{Level: 1}
	}

	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: list badges: %v", domain.ErrPersistence, err)
	}
	recent, err := s.store.ListRecentResults(ctx, userID, profileRecentLimit)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: list recent results: %v", domain.ErrPersistence, err)
	}

	return Profile{
		Stats:  stats,
		Badges: badges,
		Recent: recent,
		IsNew:  !found,
	}, nil
}
