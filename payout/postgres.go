package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the pgx-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const batchColumns = `
	id, merchant_id, status, attention_level, attention_reason,
	item_count, settled_count, failed_count,
	gross_amount, fee_amount, net_amount, settled_amount, currency,
	bank_account_masked, settlement_days,
	created_at, processed_at, expected_settlement_at, settled_at,
	failure_reason, reconciliation_notes, last_reconciled_at, version
`

func (s *PGStore) Get(ctx context.Context, id string) (Batch, error) {
	query := fmt.Sprintf(`SELECT %s FROM payout_batches WHERE id = $1`, batchColumns)

	b, err := scanBatch(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrNotFound
		}
		return Batch{}, fmt.Errorf("payout: query batch: %w", err)
	}
	return b, nil
}

func (s *PGStore) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM payout_batches ORDER BY created_at DESC LIMIT $1`, batchColumns)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("payout: list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]Batch, 0, limit)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("payout: scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payout: iterate batches: %w", err)
	}
	return batches, nil
}

func (s *PGStore) Create(ctx context.Context, b Batch, items []Item) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payout: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertBatch = `
		INSERT INTO payout_batches (
			id, merchant_id, status, attention_level, attention_reason,
			item_count, settled_count, failed_count,
			gross_amount, fee_amount, net_amount, settled_amount, currency,
			bank_account_masked, settlement_days,
			created_at, processed_at, expected_settlement_at, settled_at,
			failure_reason, reconciliation_notes, last_reconciled_at, version
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`
	_, err = tx.Exec(ctx, insertBatch,
		b.ID, b.MerchantID, string(b.Status), string(b.AttentionLevel), b.AttentionReason,
		b.ItemCount, b.SettledCount, b.FailedCount,
		b.GrossAmount, b.FeeAmount, b.NetAmount, b.SettledAmount, b.Currency,
		b.BankAccountMasked, b.SettlementDays,
		b.CreatedAt, b.ProcessedAt, b.ExpectedSettlementAt, b.SettledAt,
		b.FailureReason, b.ReconciliationNotes, b.LastReconciledAt, b.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("payout: insert batch: %w", err)
	}

	const insertItem = `
		INSERT INTO payout_items (id, batch_id, status, amount, fee, net_amount, failure_code, failure_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	for _, it := range items {
		if _, err := tx.Exec(ctx, insertItem,
			it.ID, it.BatchID, string(it.Status), it.Amount, it.Fee, it.NetAmount,
			it.FailureCode, it.FailureMessage,
		); err != nil {
			return fmt.Errorf("payout: insert item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payout: commit create: %w", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, b Batch, expectedVersion int64) error {
	const update = `
		UPDATE payout_batches
		SET status=$1, attention_level=$2, attention_reason=$3,
		    settled_count=$4, failed_count=$5, settled_amount=$6,
		    processed_at=$7, settled_at=$8, failure_reason=$9,
		    reconciliation_notes=$10, last_reconciled_at=$11, version=$12
		WHERE id=$13 AND version=$14
	`

	tag, err := s.pool.Exec(ctx, update,
		string(b.Status), string(b.AttentionLevel), b.AttentionReason,
		b.SettledCount, b.FailedCount, b.SettledAmount,
		b.ProcessedAt, b.SettledAt, b.FailureReason,
		b.ReconciliationNotes, b.LastReconciledAt, b.Version,
		b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("payout: update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, b.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *PGStore) Items(ctx context.Context, batchID string) ([]Item, error) {
	const query = `
		SELECT id, batch_id, status, amount, fee, net_amount, failure_code, failure_message
		FROM payout_items
		WHERE batch_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("payout: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it     Item
			status string
		)
		if err := rows.Scan(&it.ID, &it.BatchID, &status, &it.Amount, &it.Fee, &it.NetAmount,
			&it.FailureCode, &it.FailureMessage); err != nil {
			return nil, fmt.Errorf("payout: scan item: %w", err)
		}
		it.Status = ItemStatus(status)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payout: iterate items: %w", err)
	}
	return items, nil
}

func (s *PGStore) UpdateItem(ctx context.Context, item Item) error {
	const update = `
		UPDATE payout_items
		SET status=$1, failure_code=$2, failure_message=$3
		WHERE id=$4 AND batch_id=$5
	`

	tag, err := s.pool.Exec(ctx, update,
		string(item.Status), item.FailureCode, item.FailureMessage, item.ID, item.BatchID)
	if err != nil {
		return fmt.Errorf("payout: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBatch(row pgx.Row) (Batch, error) {
	var (
		b         Batch
		status    string
		attention string
	)
	err := row.Scan(
		&b.ID, &b.MerchantID, &status, &attention, &b.AttentionReason,
		&b.ItemCount, &b.SettledCount, &b.FailedCount,
		&b.GrossAmount, &b.FeeAmount, &b.NetAmount, &b.SettledAmount, &b.Currency,
		&b.BankAccountMasked, &b.SettlementDays,
		&b.CreatedAt, &b.ProcessedAt, &b.ExpectedSettlementAt, &b.SettledAt,
		&b.FailureReason, &b.ReconciliationNotes, &b.LastReconciledAt, &b.Version,
	)
	if err != nil {
		return Batch{}, err
	}
	b.Status = Status(status)
	b.AttentionLevel = AttentionLevel(attention)
	return b, nil
}
