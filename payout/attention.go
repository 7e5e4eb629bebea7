package payout

import (
	"fmt"
	"time"
)

// ClassifyAttention derives the operator attention level from the batch
// state at the given instant. An in-transit batch past its expected
// settlement is overdue: the estimate was wrong, not necessarily the
// transfer, so it warns rather than fails.
func ClassifyAttention(b Batch, now time.Time) (AttentionLevel, string) {
	switch {
	case b.Status == StatusRequiresReconciliation:
		return AttentionActionRequired, "bank response ambiguous; true settlement status unknown until reconciled"
	case b.Status == StatusPartiallySettled:
		return AttentionWarning, fmt.Sprintf("%d of %d items failed to settle", b.FailedCount, b.ItemCount)
	case b.Status == StatusInTransit && b.ExpectedSettlementAt != nil && now.After(*b.ExpectedSettlementAt):
		return AttentionWarning, fmt.Sprintf("settlement expected by %s and not yet confirmed",
			b.ExpectedSettlementAt.Format(time.RFC3339))
	default:
		return AttentionNone, ""
	}
}
