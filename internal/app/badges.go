package app

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/domain"
)

const (
	sharpMindThreshold  = 80
	streakThreshold     = 70
	streakLength        = 3
	categoryProMinCount = 3
)

// BadgeInput carries the current attempt's metrics into rule evaluation. The
// attempt's ResultRecord must already be visible to the store's history
// queries: the streak and per-topic rules count the current attempt.
type BadgeInput struct {
	UserID       string
	Topic        string
	Percentage   int
	TimeSpent    int
	IsPerfect    bool
	TotalQuizzes int
}

// BadgeEvaluator runs the fixed badge rules against an attempt and the user's
// history, appending any newly qualifying badges.
//
// Awards are guarded by the pre-read set of existing badge names, so two
// concurrent evaluations for the same user can double-award. Callers must
// serialize evaluation per user (see UserLocker); the store's badge append
// should additionally be conditional on the name where it can be.
type BadgeEvaluator struct {
	store Store
	clock func() time.Time
}

func NewBadgeEvaluator(store Store) *BadgeEvaluator {
	return &BadgeEvaluator{store: store, clock: time.Now}
}

// Evaluate returns the badges newly awarded for this attempt, empty if none
// qualify. Each award is durably appended before being returned.
func (e *BadgeEvaluator) Evaluate(ctx context.Context, in BadgeInput) ([]domain.Badge, error) {
	existing, err := e.store.ListBadgeNames(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: list badges: %v", domain.ErrPersistence, err)
	}

	var candidates []domain.Badge
	now := e.clock()

	add := func(kind domain.BadgeKind, name string) {
		candidates = append(candidates, domain.Badge{
			Name:        name,
			Description: kind.Description(),
			EarnedAt:    now,
		})
	}

	if in.TotalQuizzes == 1 {
		add(domain.BadgeBeginner, domain.BadgeBeginner.Name())
	}
	if in.Percentage >= sharpMindThreshold {
		add(domain.BadgeSharpMind, domain.BadgeSharpMind.Name())
	}
	if in.TimeSpent < speedBonusSeconds {
		add(domain.BadgeSpeedster, domain.BadgeSpeedster.Name())
	}
	if in.IsPerfect {
		add(domain.BadgeQuizRoyalty, domain.BadgeQuizRoyalty.Name())
	}

	onStreak, err := e.onStreak(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if onStreak {
		add(domain.BadgeStreakMaster, domain.BadgeStreakMaster.Name())
	}

	categoryPro, err := e.isCategoryPro(ctx, in.UserID, in.Topic)
	if err != nil {
		return nil, err
	}
	if categoryPro {
		add(domain.BadgeCategoryPro, domain.CategoryProName(in.Topic))
	}

	var awarded []domain.Badge
	for _, badge := range candidates {
		if _, ok := existing[badge.Name]; ok {
			continue
		}
		if err := e.store.AppendBadge(ctx, in.UserID, badge); err != nil {
			return awarded, fmt.Errorf("%w: append badge %q: %v", domain.ErrPersistence, badge.Name, err)
		}
		awarded = append(awarded, badge)
	}
	return awarded, nil
}

// onStreak reports whether the user's 3 most recent results, current attempt
// included, all reached the streak threshold.
func (e *BadgeEvaluator) onStreak(ctx context.Context, userID string) (bool, error) {
	recent, err := e.store.ListRecentResults(ctx, userID, streakLength)
	if err != nil {
		return false, fmt.Errorf("%w: list recent results: %v", domain.ErrPersistence, err)
	}
	if len(recent) < streakLength {
		return false, nil
	}
	for _, r := range recent {
		if r.Percentage < streakThreshold {
			return false, nil
		}
	}
	return true, nil
}

func (e *BadgeEvaluator) isCategoryPro(ctx context.Context, userID, topic string) (bool, error) {
	results, err := e.store.ListResultsByTopic(ctx, userID, topic)
	if err != nil {
		return false, fmt.Errorf("%w: list topic results: %v", domain.ErrPersistence, err)
	}
	strong := 0
	for _, r := range results {
		if r.Percentage >= sharpMindThreshold {
			strong++
		}
	}
	return strong >= categoryProMinCount, nil
}
