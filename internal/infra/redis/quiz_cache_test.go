package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	source := &countingSource{
		QuizSource: memory.NewStaticQuizSource(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	cache := NewQuizCache(client, source, time.Minute)

	quiz, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.ID != "quiz-1" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if source.calls != 1 {
		t.Fatalf("expected source fetched once, got %d", source.calls)
	}
	if !mr.Exists("quiz:content:quiz-1") {
		t.Fatalf("expected cached redis key")
	}

	// Second call should hit redis, source not incremented.
	_, _ = cache.GetQuiz(context.Background(), "quiz-1")
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
}

func TestQuizCacheRefetchesAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{
		QuizSource: memory.NewStaticQuizSource(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	cache := NewQuizCache(newClient(mr), source, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	// Past the TTL plus its jitter allowance.
	mr.FastForward(2 * time.Minute)
	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", source.calls)
	}
}

type countingSource struct {
	QuizSource
	calls int
}

func (s *countingSource) FetchQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	s.calls++
	return s.QuizSource.FetchQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Biology Basics",
		DurationMinutes: 10,
		Questions: []domain.Question{
			{ID: "q1", Text: "Which organelle produces ATP?", Type: domain.MultipleChoice, Options: []string{"Nucleus", "Mitochondria"}, Marks: 1},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
