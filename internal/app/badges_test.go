package app_test

import (
	"context"
	"sync"
	"testing"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"
)

func TestStreakMasterAfterThreeStrongAttempts(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStore())

	var last app.SaveOutcome
	for i := 0; i < 3; i++ {
		attempt := domain.Attempt{
			ID:               "attempt-" + string(rune('a'+i)),
			Topic:            "science",
			Questions:        makeQuestions(10),
			Answers:          answersWithCorrect(7, 10), // 70%, streak threshold
			TimeSpentSeconds: 150,
		}
		outcome, err := service.SaveResult(ctx, &alice, attempt)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		last = outcome
		if i < 2 {
			for _, b := range outcome.NewBadges {
				if b.Name == "Streak Master" {
					t.Fatalf("streak badge before 3 attempts exist")
				}
			}
		}
	}
	assertBadges(t, last.NewBadges, "Streak Master")
}

func TestStreakBrokenByWeakAttempt(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStore())

	scores := []int{8, 5, 8} // middle attempt below 70%
	for i, correct := range scores {
		attempt := domain.Attempt{
			ID:               "attempt-" + string(rune('a'+i)),
			Topic:            "science",
			Questions:        makeQuestions(10),
			Answers:          answersWithCorrect(correct, 10),
			TimeSpentSeconds: 150,
		}
		outcome, err := service.SaveResult(ctx, &alice, attempt)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		for _, b := range outcome.NewBadges {
			if b.Name == "Streak Master" {
				t.Fatalf("streak badge despite weak attempt in window")
			}
		}
	}
}

func TestCategoryProOnThirdStrongTopicAttempt(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStore())

	for i := 0; i < 3; i++ {
		attempt := domain.Attempt{
			ID:               "attempt-" + string(rune('a'+i)),
			Topic:            "geography",
			Questions:        makeQuestions(10),
			Answers:          answersWithCorrect(9, 10),
			TimeSpentSeconds: 150,
		}
		outcome, err := service.SaveResult(ctx, &alice, attempt)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		earned := false
		for _, b := range outcome.NewBadges {
			if b.Name == "Category Pro - Geography" {
				earned = true
			}
		}
		if earned != (i == 2) {
			t.Fatalf("attempt %d: category pro earned=%v", i, earned)
		}
	}
}

func TestBadgesNeverReawarded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := newTestService(store)

	for i := 0; i < 2; i++ {
		attempt := domain.Attempt{
			ID:               "attempt-" + string(rune('a'+i)),
			Topic:            "science",
			Questions:        makeQuestions(5),
			Answers:          answersWithCorrect(5, 5),
			TimeSpentSeconds: 60,
		}
		outcome, err := service.SaveResult(ctx, &alice, attempt)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if i == 1 {
			for _, b := range outcome.NewBadges {
				switch b.Name {
				case "Sharp Mind", "Speedster", "Quiz King/Queen", "Beginner":
					t.Fatalf("badge %q re-awarded on second attempt", b.Name)
				}
			}
		}
	}
}

// TestUnconditionalStoreCanDoubleAward documents why badge evaluation must be
// serialized per user and why the store's append should be conditional on the
// badge name: with neither in place, two evaluations starting from the same
// pre-read badge set both award the same badge.
func TestUnconditionalStoreCanDoubleAward(t *testing.T) {
	ctx := context.Background()
	store := &unconditionalBadgeStore{Store: memory.NewStore()}
	evaluator := app.NewBadgeEvaluator(store)

	input := app.BadgeInput{
		UserID:       alice.ID,
		Topic:        "science",
		Percentage:   90,
		TimeSpent:    60,
		TotalQuizzes: 5,
	}
	if _, err := evaluator.Evaluate(ctx, input); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if _, err := evaluator.Evaluate(ctx, input); err != nil {
		t.Fatalf("second evaluate: %v", err)
	}

	// Both evaluations read an empty badge set, so the unguarded store holds
	// the badge twice.
	if n := store.count("Sharp Mind"); n != 2 {
		t.Fatalf("expected the unmitigated path to double-award, got %d", n)
	}
}

// unconditionalBadgeStore drops the name-based de-duplication a real store
// enforces and serves badge reads from a stale (empty) snapshot, simulating
// two racing pipelines that both pre-read before either write lands.
type unconditionalBadgeStore struct {
	app.Store
	mu     sync.Mutex
	badges []domain.Badge
}

func (s *unconditionalBadgeStore) ListBadgeNames(context.Context, string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *unconditionalBadgeStore) AppendBadge(_ context.Context, _ string, badge domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append(s.badges, badge)
	return nil
}

func (s *unconditionalBadgeStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.badges {
		if b.Name == name {
			n++
		}
	}
	return n
}
