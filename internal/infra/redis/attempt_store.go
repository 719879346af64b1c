package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/app"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Notes:
//   - Attempts carry a live timer goroutine, so the objects themselves stay in
//     a local in-process map.
//   - Redis marks attempt liveness with a TTL'd key, which operators can
//     inspect and which guards against key reuse across instances.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Put(attempt *app.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.Key()] = attempt
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(attempt.Key()), attempt.Quiz().ID, s.ttl).Err()
}

func (s *AttemptStore) Get(key string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[key]
	return attempt, ok
}

func (s *AttemptStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *AttemptStore) key(attemptKey string) string {
	return "attempt:live:" + attemptKey
}
