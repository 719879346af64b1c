package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// ResultArchive persists scored attempt results as JSONB. The scoring backend
// expires attempts after a while (its result fetch starts returning 404); the
// archive keeps the review reachable past that.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) SaveResult(ctx context.Context, result domain.AttemptResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO attempt_results (attempt_id, quiz_title, score, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (attempt_id) DO NOTHING`,
		result.AttemptID, result.QuizTitle, result.Score, data)
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

func (a *ResultArchive) GetResult(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT data FROM attempt_results WHERE attempt_id=$1`, attemptID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttemptResult{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.AttemptResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.AttemptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.AttemptResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
