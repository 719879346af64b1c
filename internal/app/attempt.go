package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// State is the submission state of an attempt.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Trigger distinguishes a user-initiated submission from the timer's.
type Trigger int

const (
	// TriggerManual validates completeness before submitting.
	TriggerManual Trigger = iota
	// TriggerAuto submits whatever answers exist; the deadline has passed.
	TriggerAuto
)

// Scorer issues the authenticated submission call to the scoring backend.
type Scorer interface {
	SubmitAttempt(ctx context.Context, quizID string, responses []domain.AnswerPayload, timeTakenSeconds int) (domain.AttemptResult, error)
}

// Attempt holds all transient state for one in-progress quiz attempt: the quiz
// reference, the answer map, the countdown, and the submission state machine.
// All mutation goes through the mutex; the timer goroutine only touches the
// attempt via the expiry channel.
type Attempt struct {
	key     string
	quiz    domain.Quiz
	seconds int
	scorer  Scorer
	timer   *Timer
	expired chan struct{}

	mu        sync.Mutex
	answers   map[string]domain.AnswerValue
	state     State
	retryable bool
	result    *domain.AttemptResult
	startedAt time.Time
}

func NewAttempt(key string, quiz domain.Quiz, scorer Scorer) *Attempt {
	a := &Attempt{
		key:     key,
		quiz:    quiz,
		seconds: quiz.DurationSeconds(),
		scorer:  scorer,
		answers: make(map[string]domain.AnswerValue),
		state:   StateIdle,
		expired: make(chan struct{}),
	}
	a.timer = NewCountdown(a.seconds, func() { close(a.expired) })
	return a
}

// newAttemptWithInterval shortens the tick interval for tests.
func newAttemptWithInterval(key string, quiz domain.Quiz, scorer Scorer, interval time.Duration) *Attempt {
	a := NewAttempt(key, quiz, scorer)
	a.timer = newCountdown(a.seconds, interval, func() { close(a.expired) })
	return a
}

// Start begins the countdown.
func (a *Attempt) Start() {
	a.mu.Lock()
	a.startedAt = time.Now()
	a.mu.Unlock()
	a.timer.Start()
}

func (a *Attempt) Key() string       { return a.key }
func (a *Attempt) Quiz() domain.Quiz { return a.quiz }

// Ticks exposes the countdown stream for the transport layer.
func (a *Attempt) Ticks() <-chan int { return a.timer.Ticks() }

// Expired is closed exactly once when the countdown reaches zero.
func (a *Attempt) Expired() <-chan struct{} { return a.expired }

// Remaining returns the seconds left on the attempt clock.
func (a *Attempt) Remaining() int { return a.timer.Remaining() }

// State returns the current submission state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetAnswer normalizes and records a response for one question. MCQ stores the
// option index, TrueFalse parses "true"/"false", FillBlank keeps the raw text
// verbatim. Re-answering a question overwrites only that key; sibling answers
// are untouched. Answers are read-only once a submission has begun.
func (a *Attempt) SetAnswer(questionID, raw string, questionType domain.QuestionType, optionIndex int) error {
	question, ok := a.findQuestion(questionID)
	if !ok {
		return fmt.Errorf("question %s not in quiz %s", questionID, a.quiz.ID)
	}
	if questionType == "" {
		questionType = question.Type
	}

	var value domain.AnswerValue
	switch questionType {
	case domain.MultipleChoice:
		if optionIndex < 0 || optionIndex >= len(question.Options) {
			return fmt.Errorf("option index %d out of range for question %s", optionIndex, questionID)
		}
		value = domain.IndexAnswer(optionIndex)
	case domain.TrueFalse:
		switch raw {
		case "true":
			value = domain.BoolAnswer(true)
		case "false":
			value = domain.BoolAnswer(false)
		default:
			return fmt.Errorf("true/false answer must be \"true\" or \"false\", got %q", raw)
		}
	case domain.FillBlank:
		value = domain.TextAnswer(raw)
	default:
		return fmt.Errorf("unknown question type %q", questionType)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateSubmitting:
		return domain.ErrSubmissionInFlight
	case StateSucceeded:
		return domain.ErrAttemptFinished
	}
	a.answers[questionID] = value
	return nil
}

// Answers returns a copy of the response map.
func (a *Attempt) Answers() map[string]domain.AnswerValue {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]domain.AnswerValue, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// Unanswered lists the question IDs still missing a response, in quiz order.
func (a *Attempt) Unanswered() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unansweredLocked()
}

func (a *Attempt) unansweredLocked() []string {
	var missing []string
	for _, q := range a.quiz.Questions {
		if v, ok := a.answers[q.ID]; !ok || !v.IsAnswered() {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// IsComplete reports whether every question has a recorded answer.
func (a *Attempt) IsComplete() bool {
	return len(a.Unanswered()) == 0
}

// Submit drives the attempt through Validating and Submitting. A manual
// trigger blocks on unanswered questions (the attempt stays open); the auto
// trigger submits partial answers as-is. At most one submission is ever in
// flight; a second trigger while one is outstanding collapses without a
// network call.
func (a *Attempt) Submit(ctx context.Context, trigger Trigger) (domain.AttemptResult, error) {
	a.mu.Lock()
	switch a.state {
	case StateSubmitting:
		a.mu.Unlock()
		return domain.AttemptResult{}, domain.ErrSubmissionInFlight
	case StateSucceeded:
		result := *a.result
		a.mu.Unlock()
		return result, domain.ErrAttemptFinished
	}

	if trigger == TriggerManual {
		if missing := a.unansweredLocked(); len(missing) > 0 {
			a.mu.Unlock()
			return domain.AttemptResult{}, &domain.ValidationError{Unanswered: missing}
		}
	}

	// Ordered by the quiz's original question order; downstream reconciliation
	// relies on position for FillBlank records. Unanswered questions ride
	// along as null so positions stay aligned on auto-submit.
	responses := make([]domain.AnswerPayload, 0, len(a.quiz.Questions))
	for _, q := range a.quiz.Questions {
		responses = append(responses, domain.AnswerPayload{
			QuestionID:     q.ID,
			SelectedAnswer: a.answers[q.ID],
		})
	}

	timeTaken := a.seconds - a.timer.Remaining()
	if timeTaken < 0 {
		timeTaken = 0
	}

	a.state = StateSubmitting
	a.mu.Unlock()

	// The deadline clock halts while the call is outstanding; it resumes only
	// on a retryable failure.
	a.timer.Suspend()

	result, err := a.scorer.SubmitAttempt(ctx, a.quiz.ID, responses, timeTaken)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateFailed
		a.retryable = retryable(err)
		if a.retryable {
			a.timer.Resume()
		} else {
			a.timer.Stop()
		}
		return domain.AttemptResult{}, err
	}

	a.timer.Stop()
	a.state = StateSucceeded
	a.result = &result
	return result, nil
}

// Retryable reports whether a failed attempt may be resubmitted.
func (a *Attempt) Retryable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateFailed && a.retryable
}

// Result returns the stored outcome after a successful submission.
func (a *Attempt) Result() (domain.AttemptResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return domain.AttemptResult{}, false
	}
	return *a.result, true
}

// Close cancels the countdown, for navigation away or connection teardown.
// A late-arriving result is never applied to a closed attempt's view; the
// transport layer simply has nowhere left to deliver it.
func (a *Attempt) Close() {
	a.timer.Stop()
}

func (a *Attempt) findQuestion(questionID string) (domain.Question, bool) {
	for _, q := range a.quiz.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}

func retryable(err error) bool {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Unclassified transport errors are treated as network failures.
	return true
}
