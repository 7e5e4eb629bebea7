package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists records in Postgres. The unique constraint on key is the
// serialization point: two concurrent requests with the same key race on the
// insert and the loser re-reads the winner's row.
type PGStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPGStore(pool *pgxpool.Pool, ttl time.Duration) *PGStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PGStore{pool: pool, ttl: ttl}
}

func (s *PGStore) Check(ctx context.Context, key, fingerprint string) (CheckResult, error) {
	const query = `
		SELECT fingerprint, result, created_at
		FROM idempotency_records
		WHERE key = $1
	`

	var (
		storedFingerprint string
		result            []byte
		createdAt         time.Time
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(&storedFingerprint, &result, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CheckResult{Status: StatusNew}, nil
		}
		return CheckResult{}, fmt.Errorf("idempotency: query record: %w", err)
	}
	if time.Since(createdAt) > s.ttl {
		// Reclaim the expired row so the key can be reused.
		if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE key = $1 AND created_at = $2`, key, createdAt); err != nil {
			return CheckResult{}, fmt.Errorf("idempotency: reclaim expired record: %w", err)
		}
		return CheckResult{Status: StatusNew}, nil
	}
	if storedFingerprint != fingerprint {
		return CheckResult{
			Status: StatusConflict,
			Reason: "idempotency key was already used for a different request body",
		}, nil
	}
	return CheckResult{Status: StatusDuplicate, CachedResult: result}, nil
}

func (s *PGStore) Commit(ctx context.Context, key, fingerprint string, result []byte) error {
	const insert = `
		INSERT INTO idempotency_records (key, fingerprint, result)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, insert, key, fingerprint, result)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race; the first commit stands.
			return nil
		}
		return fmt.Errorf("idempotency: insert record: %w", err)
	}
	return nil
}
