package domain

import "errors"

var (
	// ErrEmptyQuestionSet is returned when an attempt carries no questions.
	ErrEmptyQuestionSet = errors.New("attempt has no questions")
	// ErrMalformedAnswers is returned when an answer references a question
	// index outside the attempt's question set, or a negative option index.
	ErrMalformedAnswers = errors.New("malformed answers mapping")
	// ErrPersistence wraps transient store failures on the save path. The
	// score is still valid; the save may be retried.
	ErrPersistence = errors.New("persistence failed")
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("record not found")
)
