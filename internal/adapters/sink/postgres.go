package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devquest-io/analytics/internal/domain/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS user_activity (
	user_key     TEXT PRIMARY KEY,
	total_solved INTEGER NOT NULL,
	snapshot     JSONB NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL
)`

const upsertSQL = `
INSERT INTO user_activity (user_key, total_solved, snapshot, fetched_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_key) DO UPDATE SET
	total_solved = EXCLUDED.total_solved,
	snapshot     = EXCLUDED.snapshot,
	fetched_at   = EXCLUDED.fetched_at`

// PostgresSink stores one row per user, replaced in place on refresh.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to connString and ensures the snapshot table
// exists.
func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Upsert(ctx context.Context, rec model.ActivityRecord) error {
	if !rec.User.Valid() {
		return ErrEmptyKey
	}

	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot for %q: %w", rec.User, err)
	}

	_, err = s.pool.Exec(ctx, upsertSQL, rec.User.String(), rec.TotalSolved, snapshot, rec.FetchedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert %q: %w", ErrUnavailable, rec.User, err)
	}

	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
