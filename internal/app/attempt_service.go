package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/domain"
)

// AttemptRepository tracks in-progress attempts (in-memory, Redis-backed, etc).
type AttemptRepository interface {
	Put(attempt *Attempt)
	Get(key string) (*Attempt, bool)
	Delete(key string)
}

// QuizRepository loads quiz content (from cache/backing API).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ScoringClient is the full seam to the scoring backend.
type ScoringClient interface {
	Scorer
	FetchAttemptResult(ctx context.Context, attemptID string) (domain.AttemptResult, error)
}

// ResultArchive persists scored results locally so a review stays reachable
// after the backend expires the attempt.
type ResultArchive interface {
	SaveResult(ctx context.Context, result domain.AttemptResult) error
	GetResult(ctx context.Context, attemptID string) (domain.AttemptResult, error)
}

// AttemptService contains the attempt-lifecycle use cases.
type AttemptService struct {
	quizzes  QuizRepository
	scorer   ScoringClient
	attempts AttemptRepository
	archive  ResultArchive // optional
	fetches  singleflight.Group
}

func NewAttemptService(quizzes QuizRepository, scorer ScoringClient, attempts AttemptRepository, archive ResultArchive) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		scorer:   scorer,
		attempts: attempts,
		archive:  archive,
	}
}

// StartAttempt loads the quiz and registers a fresh attempt for it. Quizzes
// without questions are rejected before any state is created.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID string) (*Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	attempt := NewAttempt(uuid.NewString(), quiz, s.scorer)
	s.attempts.Put(attempt)
	return attempt, nil
}

// Attempt looks up a registered attempt by key.
func (s *AttemptService) Attempt(key string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(key)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// Submit runs the attempt's submission, archives the outcome, and reconciles
// it into the review model handed to the results view.
func (s *AttemptService) Submit(ctx context.Context, attempt *Attempt, trigger Trigger) (domain.Review, error) {
	result, err := attempt.Submit(ctx, trigger)
	if err != nil {
		return domain.Review{}, err
	}

	if s.archive != nil {
		if err := s.archive.SaveResult(ctx, result); err != nil {
			log.Warn().Err(err).Str("attemptId", result.AttemptID).Msg("archive write failed")
		}
	}
	return Reconcile(result), nil
}

// FetchReview re-fetches a scored result by attempt ID and reconciles it.
// Concurrent fetches for the same attempt collapse into one call. When the
// backend reports the attempt gone (expired), the local archive is consulted
// before giving up.
func (s *AttemptService) FetchReview(ctx context.Context, attemptID string) (domain.Review, error) {
	v, err, _ := s.fetches.Do(attemptID, func() (interface{}, error) {
		result, err := s.scorer.FetchAttemptResult(ctx, attemptID)
		if err == nil {
			return result, nil
		}
		var apiErr *domain.APIError
		if s.archive != nil && errors.As(err, &apiErr) && apiErr.Kind == domain.KindNotFound {
			if archived, archiveErr := s.archive.GetResult(ctx, attemptID); archiveErr == nil {
				log.Info().Str("attemptId", attemptID).Msg("serving review from archive")
				return archived, nil
			}
		}
		return domain.AttemptResult{}, err
	})
	if err != nil {
		return domain.Review{}, err
	}
	return Reconcile(v.(domain.AttemptResult)), nil
}

// CloseAttempt cancels the countdown and drops the attempt from the registry.
func (s *AttemptService) CloseAttempt(key string) {
	if attempt, ok := s.attempts.Get(key); ok {
		attempt.Close()
	}
	s.attempts.Delete(key)
}
