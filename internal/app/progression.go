package app

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/domain"
)

// Store abstracts the document store holding progression data (in-memory,
// Postgres, etc). Appends are append-only; UpsertUserStats has merge
// semantics so fields outside this flow are preserved.
type Store interface {
	GetUserStats(ctx context.Context, userID string) (domain.UserStats, bool, error)
	UpsertUserStats(ctx context.Context, userID string, stats domain.UserStats) error
	AppendResult(ctx context.Context, userID string, record domain.ResultRecord) (string, error)
	AppendLeaderboardEntry(ctx context.Context, record domain.LeaderboardRecord) (string, error)
	ListBadgeNames(ctx context.Context, userID string) (map[string]struct{}, error)
	ListBadges(ctx context.Context, userID string) ([]domain.Badge, error)
	AppendBadge(ctx context.Context, userID string, badge domain.Badge) error
	ListRecentResults(ctx context.Context, userID string, limit int) ([]domain.ResultRecord, error)
	ListResultsByTopic(ctx context.Context, userID, topic string) ([]domain.ResultRecord, error)
	QueryLeaderboard(ctx context.Context, topic string, limit int) ([]domain.LeaderboardRecord, error)
}

// AttemptGuard is the persisted at-most-once marker for the save path. Begin
// reports whether this attempt is being processed for the first time; Release
// clears the marker so a failed save can be retried.
type AttemptGuard interface {
	Begin(ctx context.Context, attemptID string) (bool, error)
	Release(ctx context.Context, attemptID string) error
}

// UserLocker serializes result processing per user. Two concurrent saves for
// the same user (e.g. two browser tabs) would otherwise race the badge
// check-and-append.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (release func(), err error)
}

// SaveOutcome is what the caller shows the user. Score is always populated;
// the gamification fields are only set when the corresponding write happened.
type SaveOutcome struct {
	Score        domain.ScoreResult
	Rewards      *Rewards
	NewBadges    []domain.Badge
	Saved        bool
	AlreadySaved bool
}

// ProgressionService runs the result pipeline: score an attempt, fold it into
// the user's cumulative stats, evaluate badges, and append the result and
// leaderboard records.
type ProgressionService struct {
	store  Store
	guard  AttemptGuard
	locks  UserLocker
	badges *BadgeEvaluator
	clock  func() time.Time
}

func NewProgressionService(store Store, guard AttemptGuard, locks UserLocker) *ProgressionService {
	return &ProgressionService{
		store:  store,
		guard:  guard,
		locks:  locks,
		badges: NewBadgeEvaluator(store),
		clock:  time.Now,
	}
}

// NewProgressionServiceWithClock is test-only for deterministic timestamps.
func NewProgressionServiceWithClock(store Store, guard AttemptGuard, locks UserLocker, now func() time.Time) *ProgressionService {
	s := NewProgressionService(store, guard, locks)
	s.clock = now
	s.badges.clock = now
	return s
}

// SaveResult processes one completed attempt. The score is computed and
// returned even when persistence is skipped (anonymous user, already saved)
// or fails; a persistence failure releases the idempotence marker and is
// surfaced wrapped in domain.ErrPersistence so the caller can warn and allow
// a retry.
func (s *ProgressionService) SaveResult(ctx context.Context, user *domain.User, attempt domain.Attempt) (SaveOutcome, error) {
	score, err := ScoreAttempt(attempt)
	if err != nil {
		return SaveOutcome{}, err
	}
	outcome := SaveOutcome{Score: score}

	// Anonymous play is allowed; only saving progress requires identity.
	if user == nil || user.ID == "" {
		return outcome, nil
	}

	first, err := s.guard.Begin(ctx, attempt.ID)
	if err != nil {
		return outcome, fmt.Errorf("%w: begin attempt %s: %v", domain.ErrPersistence, attempt.ID, err)
	}
	if !first {
		outcome.AlreadySaved = true
		return outcome, nil
	}

	release, err := s.locks.Lock(ctx, user.ID)
	if err != nil {
		s.releaseGuard(ctx, attempt.ID)
		return outcome, fmt.Errorf("%w: lock user %s: %v", domain.ErrPersistence, user.ID, err)
	}
	defer release()

	if err := s.persist(ctx, *user, attempt, score, &outcome); err != nil {
		s.releaseGuard(ctx, attempt.ID)
		return outcome, err
	}
	outcome.Saved = true
	return outcome, nil
}

func (s *ProgressionService) persist(ctx context.Context, user domain.User, attempt domain.Attempt, score domain.ScoreResult, outcome *SaveOutcome) error {
	prior, found, err := s.store.GetUserStats(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: read stats: %v", domain.ErrPersistence, err)
	}
	if !found {
		prior = domain.UserStats{Level: 1}
	}

	rewards := CalculateRewards(score, attempt.TimeSpentSeconds, prior)
	if err := s.store.UpsertUserStats(ctx, user.ID, rewards.Stats); err != nil {
		return fmt.Errorf("%w: upsert stats: %v", domain.ErrPersistence, err)
	}
	outcome.Rewards = &rewards

	now := s.clock()

	// The result is appended before badge evaluation so the streak and
	// per-topic rules see the current attempt in their history reads.
	if _, err := s.store.AppendResult(ctx, user.ID, domain.ResultRecord{
		Topic:          attempt.Topic,
		Score:          score.CorrectCount,
		TotalQuestions: score.TotalCount,
		Percentage:     score.Percentage,
		TimeSpent:      attempt.TimeSpentSeconds,
		Answers:        attempt.Answers,
		PointsEarned:   rewards.PointsEarned,
		XPEarned:       rewards.XPEarned,
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("%w: append result: %v", domain.ErrPersistence, err)
	}

	newBadges, err := s.badges.Evaluate(ctx, BadgeInput{
		UserID:       user.ID,
		Topic:        attempt.Topic,
		Percentage:   score.Percentage,
		TimeSpent:    attempt.TimeSpentSeconds,
		IsPerfect:    score.IsPerfect(),
		TotalQuizzes: rewards.Stats.TotalQuizzes,
	})
	outcome.NewBadges = newBadges
	if err != nil {
		return err
	}

	if _, err := s.store.AppendLeaderboardEntry(ctx, domain.LeaderboardRecord{
		UserID:      user.ID,
		DisplayName: user.Name(),
		Topic:       attempt.Topic,
		Score:       score.CorrectCount,
		Percentage:  score.Percentage,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("%w: append leaderboard entry: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *ProgressionService) releaseGuard(ctx context.Context, attemptID string) {
	// Best effort: a leaked marker only delays a retry until its TTL lapses.
	_ = s.guard.Release(ctx, attemptID)
}
