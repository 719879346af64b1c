package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz is returned for quizzes with zero questions; they cannot be attempted.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrUnauthenticated means no bearer credential was available; no network call is made.
	ErrUnauthenticated = errors.New("no session credential")
	// ErrAttemptNotFound is returned when an attempt key is unknown to the registry.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSubmissionInFlight rejects a second submit while one is outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrAttemptFinished rejects mutations after a successful submission.
	ErrAttemptFinished = errors.New("attempt already submitted")
)

// ErrorKind classifies failures crossing the scoring-backend boundary.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindServer      ErrorKind = "server"
	KindRateLimited ErrorKind = "rate_limited"
	KindNotFound    ErrorKind = "not_found"
	KindForbidden   ErrorKind = "forbidden"
	KindDataShape   ErrorKind = "data_shape"
)

// APIError is the canonical form every backend failure is converted to before
// it reaches a caller. Nothing escapes the rest client as a raw error.
type APIError struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the attempt may be resubmitted after this error.
// Malformed payloads are terminal for the current view; everything else the
// user can retry.
func (e *APIError) Retryable() bool {
	return e.Kind != KindDataShape
}

// ValidationError blocks a manual submission when questions are unanswered.
// The attempt stays open so the user can complete it; auto-submit on timeout
// never raises it.
type ValidationError struct {
	Unanswered []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d questions unanswered", len(e.Unanswered))
}
