package payout

import "time"

// Status is a batch-level payout state.
type Status string

const (
	StatusPending                Status = "pending"
	StatusProcessing             Status = "processing"
	StatusInTransit              Status = "in_transit"
	StatusSettled                Status = "settled"
	StatusPartiallySettled       Status = "partially_settled"
	StatusRequiresReconciliation Status = "requires_reconciliation"
	StatusFailed                 Status = "failed"
	StatusReturned               Status = "returned"
)

// ItemStatus tracks one payout item independently of its batch. Partial
// failure is a first-class case.
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusSettled ItemStatus = "settled"
	ItemStatusFailed  ItemStatus = "failed"
)

// AttentionLevel tells an operator how urgently a batch needs eyes. It is
// derived from the batch state, never stored independently of its cause.
type AttentionLevel string

const (
	AttentionNone           AttentionLevel = "none"
	AttentionInfo           AttentionLevel = "info"
	AttentionWarning        AttentionLevel = "warning"
	AttentionActionRequired AttentionLevel = "action_required"
)

// Batch groups N payout items to one merchant bank account over one T+N
// settlement window. Amount invariants: NetAmount = GrossAmount - FeeAmount,
// SettledAmount <= NetAmount.
type Batch struct {
	ID                   string
	MerchantID           string
	Status               Status
	AttentionLevel       AttentionLevel
	AttentionReason      string
	ItemCount            int
	SettledCount         int
	FailedCount          int
	GrossAmount          int64 // minor units
	FeeAmount            int64
	NetAmount            int64
	SettledAmount        int64
	Currency             string
	BankAccountMasked    string
	SettlementDays       int // the N in T+N
	CreatedAt            time.Time
	ProcessedAt          *time.Time
	ExpectedSettlementAt *time.Time // an estimate, not a deadline
	SettledAt            *time.Time
	FailureReason        string
	ReconciliationNotes  string
	LastReconciledAt     *time.Time
	Version              int64
}

// Item is one payout within a batch.
type Item struct {
	ID             string
	BatchID        string
	Status         ItemStatus
	Amount         int64
	Fee            int64
	NetAmount      int64
	FailureCode    string
	FailureMessage string
}

// Clone returns a deep copy so stores never hand out aliased state.
func (b Batch) Clone() Batch {
	out := b
	out.ProcessedAt = cloneTime(b.ProcessedAt)
	out.ExpectedSettlementAt = cloneTime(b.ExpectedSettlementAt)
	out.SettledAt = cloneTime(b.SettledAt)
	out.LastReconciledAt = cloneTime(b.LastReconciledAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ItemSummary aggregates per-item outcomes for a batch.
type ItemSummary struct {
	SettledCount  int
	FailedCount   int
	PendingCount  int
	SettledAmount int64
}

// SummarizeItems folds per-item outcomes into batch-level counts. The batch
// status stays independent: some items failing while the batch settles is
// the partially_settled case, not an error.
func SummarizeItems(items []Item) ItemSummary {
	var sum ItemSummary
	for _, it := range items {
		switch it.Status {
		case ItemStatusSettled:
			sum.SettledCount++
			sum.SettledAmount += it.NetAmount
		case ItemStatusFailed:
			sum.FailedCount++
		default:
			sum.PendingCount++
		}
	}
	return sum
}
