package domain

import (
	"fmt"
	"time"
)

// User identifies the authenticated player. A nil *User means anonymous play:
// the score is still computed but nothing is persisted.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// Name returns the display name, falling back to the email address.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Question models an MCQ question with exactly one correct option. Options are
// already shuffled and stay in that order for the attempt's lifetime.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Attempt is one completed run through a quiz's question set. Answers maps a
// question index to the selected option index; unanswered indices are absent
// and count as incorrect. ID is the idempotence key for the save path.
type Attempt struct {
	ID               string
	Topic            string
	Questions        []Question
	Answers          map[int]int
	TimeSpentSeconds int
}

// ScoreResult is the pure outcome of scoring an attempt.
type ScoreResult struct {
	CorrectCount int    `json:"correctCount"`
	TotalCount   int    `json:"totalCount"`
	Percentage   int    `json:"percentage"`
	Grade        string `json:"grade"`
	// PerQuestion holds correctness per question index, in question order.
	PerQuestion []bool `json:"perQuestion"`
}

// IsPerfect reports whether every question was answered correctly.
func (s ScoreResult) IsPerfect() bool {
	return s.TotalCount > 0 && s.CorrectCount == s.TotalCount
}

// UserStats is the cumulative per-user progression document. Level is always
// derived as floor(xp/100)+1.
type UserStats struct {
	TotalPoints  int `json:"totalPoints"`
	XP           int `json:"xp"`
	Level        int `json:"level"`
	TotalQuizzes int `json:"totalQuizzes"`
	AverageScore int `json:"averageScore"`
	MaxScore     int `json:"maxScore"`
}

// ResultRecord is the append-only per-user record of one attempt.
type ResultRecord struct {
	Topic          string      `json:"topic"`
	Score          int         `json:"score"`
	TotalQuestions int         `json:"totalQuestions"`
	Percentage     int         `json:"percentage"`
	TimeSpent      int         `json:"timeSpent"`
	Answers        map[int]int `json:"answers"`
	PointsEarned   int         `json:"pointsEarned"`
	XPEarned       int         `json:"xpEarned"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// LeaderboardRecord is the append-only global record of one attempt.
type LeaderboardRecord struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Topic       string    `json:"topic"`
	Score       int       `json:"score"`
	Percentage  int       `json:"percentage"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LeaderboardRow is a ranked view of a LeaderboardRecord.
type LeaderboardRow struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Topic       string    `json:"topic"`
	Score       int       `json:"score"`
	Percentage  int       `json:"percentage"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Badge is a named, one-time achievement marker owned by a user. Name is the
// de-duplication key: a name is never awarded twice to the same user.
type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// FormatDuration renders elapsed seconds as m:ss for display.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
