package domain

import (
	"unicode"
	"unicode/utf8"
)

// BadgeKind enumerates the badge rules. The persisted de-duplication key stays
// the award-name string, so the names below must never change.
type BadgeKind int

const (
	BadgeBeginner BadgeKind = iota
	BadgeSharpMind
	BadgeSpeedster
	BadgeQuizRoyalty
	BadgeStreakMaster
	BadgeCategoryPro
)

// Name returns the persisted award name. BadgeCategoryPro is topic-specific;
// use CategoryProName for it.
func (k BadgeKind) Name() string {
	switch k {
	case BadgeBeginner:
		return "Beginner"
	case BadgeSharpMind:
		return "Sharp Mind"
	case BadgeSpeedster:
		return "Speedster"
	case BadgeQuizRoyalty:
		return "Quiz King/Queen"
	case BadgeStreakMaster:
		return "Streak Master"
	default:
		return ""
	}
}

// Description returns the user-facing badge description.
func (k BadgeKind) Description() string {
	switch k {
	case BadgeBeginner:
		return "Completed your first quiz"
	case BadgeSharpMind:
		return "Scored 80% or higher"
	case BadgeSpeedster:
		return "Finished a quiz in under 2 minutes"
	case BadgeQuizRoyalty:
		return "Answered every question correctly"
	case BadgeStreakMaster:
		return "Scored 70% or higher on 3 quizzes in a row"
	case BadgeCategoryPro:
		return "Scored 80% or higher on 3 quizzes in one category"
	default:
		return ""
	}
}

// CategoryProName builds the topic-specific award name, e.g.
// "Category Pro - Science".
func CategoryProName(topic string) string {
	return "Category Pro - " + capitalize(topic)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
