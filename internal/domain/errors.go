package domain

import "errors"

var (
	// ErrQuestionNotFound indicates the requested question ID does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoAnswerKey is returned when multiple-choice grading hits a row without a correct index.
	ErrNoAnswerKey = errors.New("question has no answer key")
	// ErrEmptyAnswer rejects blank open answers.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrAnswerTooLong rejects open answers above the configured ceiling.
	ErrAnswerTooLong = errors.New("answer is too long")
	// ErrGradingFailed wraps any failure of the open-answer grading dependency.
	ErrGradingFailed = errors.New("could not verify the answer")
	// ErrSessionNotFound is returned when a quiz session id is unknown or expired.
	ErrSessionNotFound = errors.New("quiz session not found")
)

// Session state machine errors.
var (
	// ErrInvalidTransition is returned when an action does not apply to the current phase.
	ErrInvalidTransition = errors.New("action not allowed in the current phase")
	// ErrFilterNotChosen is returned when a count is chosen before a type filter.
	ErrFilterNotChosen = errors.New("question type filter not chosen")
	// ErrInvalidFilter rejects unknown type filters.
	ErrInvalidFilter = errors.New("invalid question type filter")
	// ErrInvalidCount rejects counts outside the offered options.
	ErrInvalidCount = errors.New("invalid question count")
	// ErrWrongKind is returned when an action targets the other question variant.
	ErrWrongKind = errors.New("action does not apply to this question type")
	// ErrOptionOutOfRange rejects option indexes the question does not have.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrAlreadyGraded prevents grading the same presentation twice.
	ErrAlreadyGraded = errors.New("question already graded")
	// ErrVerifying is returned while a grading request is outstanding.
	ErrVerifying = errors.New("grading already in progress")
	// ErrNotGraded is returned when advancing past an ungraded question.
	ErrNotGraded = errors.New("question has not been graded yet")
)
