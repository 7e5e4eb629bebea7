package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the pgx-backed Store. Optimistic locking is a conditional
// update on (id, version); zero rows affected means a concurrent writer won.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const paymentColumns = `
	id, idempotency_key, status, amount, currency, merchant_id, customer_id,
	transaction_ids, failure_code, failure_message, metadata,
	created_at, updated_at, completed_at, version
`

func (s *PGStore) Get(ctx context.Context, id string) (Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)

	p, err := scanPayment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("payment: query by id: %w", err)
	}
	return p, nil
}

func (s *PGStore) Create(ctx context.Context, p Payment) error {
	const insert = `
		INSERT INTO payments (
			id, idempotency_key, status, amount, currency, merchant_id, customer_id,
			transaction_ids, failure_code, failure_message, metadata,
			created_at, updated_at, completed_at, version
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`

	_, err := s.pool.Exec(ctx, insert,
		p.ID, p.IdempotencyKey, string(p.Status), p.Amount, p.Currency,
		p.MerchantID, p.CustomerID, p.TransactionIDs,
		p.FailureCode, p.FailureMessage, p.Metadata,
		p.CreatedAt, p.UpdatedAt, p.CompletedAt, p.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("payment: insert: %w", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, p Payment, expectedVersion int64) error {
	const update = `
		UPDATE payments
		SET status=$1, transaction_ids=$2, failure_code=$3, failure_message=$4,
		    metadata=$5, updated_at=$6, completed_at=$7, version=$8
		WHERE id=$9 AND version=$10
	`

	tag, err := s.pool.Exec(ctx, update,
		string(p.Status), p.TransactionIDs, p.FailureCode, p.FailureMessage,
		p.Metadata, p.UpdatedAt, p.CompletedAt, p.Version,
		p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("payment: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row vanished or a concurrent writer bumped the version.
		if _, err := s.Get(ctx, p.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p      Payment
		status string
	)
	err := row.Scan(
		&p.ID, &p.IdempotencyKey, &status, &p.Amount, &p.Currency,
		&p.MerchantID, &p.CustomerID, &p.TransactionIDs,
		&p.FailureCode, &p.FailureMessage, &p.Metadata,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.Version,
	)
	if err != nil {
		return Payment{}, err
	}
	p.Status = Status(status)
	return p, nil
}
