package app

import (
	"math"

	"quiz-progress-service/internal/domain"
)

const (
	pointsPerCorrect  = 10
	completionBonus   = 2
	speedBonus        = 5
	speedBonusSeconds = 120
	xpPerCorrect      = 5
	xpPerLevel        = 100
)

// Rewards is the derived outcome of one attempt on top of prior stats.
type Rewards struct {
	Stats        domain.UserStats
	PointsEarned int
	XPEarned     int
	NewLevel     int
	LeveledUp    bool
}

// CalculateRewards folds one scored attempt into the prior cumulative stats.
// Pure: same inputs always yield the same outputs.
//
// The new average is recomputed from the stored mean and count rather than
// from raw history; the rounding drift that accumulates over many attempts is
// part of the observable behavior and must not be "fixed" here.
func CalculateRewards(score domain.ScoreResult, timeSpentSeconds int, prior domain.UserStats) Rewards {
	if prior.Level < 1 {
		prior.Level = 1
	}

	points := score.CorrectCount*pointsPerCorrect + completionBonus
	if timeSpentSeconds < speedBonusSeconds {
		points += speedBonus
	}
	xpEarned := score.CorrectCount * xpPerCorrect

	newXP := prior.XP + xpEarned
	newLevel := newXP/xpPerLevel + 1
	newTotal := prior.TotalQuizzes + 1
	newAverage := int(math.Round(float64(prior.AverageScore*prior.TotalQuizzes+score.Percentage) / float64(newTotal)))
	newMax := prior.MaxScore
	if score.Percentage > newMax {
		newMax = score.Percentage
	}

	return Rewards{
		Stats: domain.UserStats{
			TotalPoints:  prior.TotalPoints + points,
			XP:           newXP,
			Level:        newLevel,
			TotalQuizzes: newTotal,
			AverageScore: newAverage,
			MaxScore:     newMax,
		},
		PointsEarned: points,
		XPEarned:     xpEarned,
		NewLevel:     newLevel,
		LeveledUp:    newLevel > prior.Level,
	}
}
