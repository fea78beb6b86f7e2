package app

import (
	"math"

	"quiz-progress-service/internal/domain"
)

// ScoreAttempt grades an attempt against its question set. Indices absent
// from the answers mapping count as incorrect; an answer keyed outside the
// question set is malformed. A selected option outside a question's option
// range simply never matches the correct index and scores as incorrect.
func ScoreAttempt(attempt domain.Attempt) (domain.ScoreResult, error) {
	total := len(attempt.Questions)
	if total == 0 {
		return domain.ScoreResult{}, domain.ErrEmptyQuestionSet
	}
	for idx, selected := range attempt.Answers {
		if idx < 0 || idx >= total || selected < 0 {
			return domain.ScoreResult{}, domain.ErrMalformedAnswers
		}
	}

	perQuestion := make([]bool, total)
	correct := 0
	for i, q := range attempt.Questions {
		selected, answered := attempt.Answers[i]
		if answered && selected == q.CorrectIndex {
			perQuestion[i] = true
			correct++
		}
	}

	percentage := int(math.Round(float64(correct) / float64(total) * 100))
	return domain.ScoreResult{
		CorrectCount: correct,
		TotalCount:   total,
		Percentage:   percentage,
		Grade:        gradeFor(percentage),
		PerQuestion:  perQuestion,
	}, nil
}

func gradeFor(percentage int) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	default:
		return "D"
	}
}
