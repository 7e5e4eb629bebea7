// Package oracles holds the cross-cutting invariants of the stress run as
// SQL queries. Each query selects violating rows; an empty result means the
// invariant held no matter how the actors interleaved.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_one_payment_per_key",
			SQL: `SELECT idempotency_key, COUNT(*) FROM payments
                  GROUP BY idempotency_key HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_payment_status_known",
			SQL: `SELECT id, status FROM payments
                  WHERE status NOT IN ('draft','submitted','processing','requires_action','succeeded','failed','canceled')`,
		},
		{
			Name: "O3_payment_version_floor",
			SQL:  `SELECT id, version FROM payments WHERE version < 1`,
		},
		{
			Name: "O4_terminal_payment_completed",
			SQL: `SELECT id, status FROM payments
                  WHERE (status IN ('succeeded','failed','canceled') AND completed_at IS NULL)
                     OR (status NOT IN ('succeeded','failed','canceled') AND completed_at IS NOT NULL)`,
		},
		{
			Name: "O5_failure_code_only_on_failed",
			SQL: `SELECT id, status, failure_code FROM payments
                  WHERE (status = 'failed' AND failure_code = '')
                     OR (status <> 'failed' AND failure_code <> '')`,
		},
		{
			Name: "O6_payout_amount_identity",
			SQL: `SELECT id FROM payout_batches
                  WHERE net_amount <> gross_amount - fee_amount
                     OR settled_amount > net_amount
                     OR settled_amount < 0`,
		},
		{
			Name: "O7_payout_item_counts",
			SQL: `SELECT id FROM payout_batches
                  WHERE settled_count + failed_count > item_count
                     OR settled_count < 0 OR failed_count < 0`,
		},
		{
			Name: "O8_reconciliation_audited",
			SQL: `SELECT id FROM payout_batches
                  WHERE last_reconciled_at IS NOT NULL AND reconciliation_notes = ''`,
		},
		{
			Name: "O9_item_totals_match_batch",
			SQL: `SELECT b.id FROM payout_batches b
                  JOIN (SELECT batch_id, COUNT(*) AS n, SUM(amount) AS gross, SUM(fee) AS fees
                        FROM payout_items GROUP BY batch_id) i ON i.batch_id = b.id
                  WHERE i.n <> b.item_count OR i.gross <> b.gross_amount OR i.fees <> b.fee_amount`,
		},
		{
			Name: "O10_idempotency_record_complete",
			SQL: `SELECT key FROM idempotency_records
                  WHERE fingerprint = '' OR result IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and a sample
// violating row) or an empty name when every invariant held.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
