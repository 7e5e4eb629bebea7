package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"payflow/apierr"
	"payflow/logger"
)

// resolvable is the set of statuses a reconciliation may land on.
var resolvable = map[Status]bool{
	StatusSettled:          true,
	StatusPartiallySettled: true,
	StatusFailed:           true,
	StatusReturned:         true,
}

// Service owns payout batch mutations, including the human-gated
// reconciliation transition. Nothing here retries a batch automatically.
type Service struct {
	store       Store
	log         *logger.Logger
	idGenerator func() string
	now         func() time.Time
	onUpdate    func(Batch)
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:       store,
		log:         log,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithUpdateHook(fn func(Batch)) *Service {
	s.onUpdate = fn
	return s
}

// CreateParams describes a new settlement batch. Per-item net amounts are
// derived; batch totals are derived from the items.
type CreateParams struct {
	MerchantID     string
	Currency       string
	BankAccount    string // full account reference; only a masked form is stored
	SettlementDays int
	Items          []ItemParams
}

type ItemParams struct {
	Amount int64
	Fee    int64
}

// Create builds a batch in pending with totals aggregated from its items.
func (s *Service) Create(ctx context.Context, params CreateParams) (Batch, error) {
	if params.MerchantID == "" {
		return Batch{}, apierr.Validation(apierr.CodeInvalidRequest, "merchantId is required")
	}
	if len(params.Items) == 0 {
		return Batch{}, apierr.Validation(apierr.CodeInvalidRequest, "a batch requires at least one item")
	}
	if params.SettlementDays <= 0 {
		params.SettlementDays = 2
	}

	now := s.now()
	batchID := s.idGenerator()
	items := make([]Item, 0, len(params.Items))
	var gross, fees int64
	for _, ip := range params.Items {
		if ip.Amount <= 0 {
			return Batch{}, apierr.Validation(apierr.CodeInvalidAmount,
				"item amount must be a positive integer in minor units, got %d", ip.Amount)
		}
		if ip.Fee < 0 || ip.Fee > ip.Amount {
			return Batch{}, apierr.Validation(apierr.CodeInvalidAmount,
				"item fee %d is outside [0, amount]", ip.Fee)
		}
		gross += ip.Amount
		fees += ip.Fee
		items = append(items, Item{
			ID:        s.idGenerator(),
			BatchID:   batchID,
			Status:    ItemStatusPending,
			Amount:    ip.Amount,
			Fee:       ip.Fee,
			NetAmount: ip.Amount - ip.Fee,
		})
	}

	expected := now.AddDate(0, 0, params.SettlementDays)
	b := Batch{
		ID:                   batchID,
		MerchantID:           params.MerchantID,
		Status:               StatusPending,
		AttentionLevel:       AttentionNone,
		ItemCount:            len(items),
		GrossAmount:          gross,
		FeeAmount:            fees,
		NetAmount:            gross - fees,
		Currency:             params.Currency,
		BankAccountMasked:    maskAccount(params.BankAccount),
		SettlementDays:       params.SettlementDays,
		CreatedAt:            now,
		ExpectedSettlementAt: &expected,
		Version:              1,
	}
	if err := s.store.Create(ctx, b, items); err != nil {
		return Batch{}, fmt.Errorf("payout: create batch: %w", err)
	}

	s.log.Info("payout batch created",
		"batch_id", b.ID, "merchant_id", b.MerchantID, "items", b.ItemCount, "net", b.NetAmount)
	return b, nil
}

// Transition moves a batch to target through the state table, re-deriving
// the attention level from the new state.
func (s *Service) Transition(ctx context.Context, id string, target Status, expectedVersion *int64) (Batch, error) {
	if !Graph.Known(target) {
		return Batch{}, apierr.Validation(apierr.CodeInvalidStatus,
			"%q is not a payout batch status", string(target))
	}

	b, err := s.load(ctx, id)
	if err != nil {
		return Batch{}, err
	}

	if expectedVersion != nil && *expectedVersion != b.Version {
		return Batch{}, apierr.Conflict(apierr.CodeConcurrentModification,
			"payout batch %s is at version %d, request expected %d; fetch the latest state and retry deliberately",
			id, b.Version, *expectedVersion)
	}

	if b.Status == target {
		return b, nil
	}

	if !Graph.IsLegal(b.Status, target) {
		return Batch{}, apierr.Conflict(apierr.CodeInvalidTransition,
			"%s", Graph.ExplainIllegal(b.Status, target))
	}

	from := b.Status
	previousVersion := b.Version
	now := s.now()
	b.Status = target
	b.Version++
	switch target {
	case StatusProcessing:
		b.ProcessedAt = &now
	case StatusSettled:
		b.SettledAt = &now
		b.SettledCount = b.ItemCount - b.FailedCount
		b.SettledAmount = b.NetAmount
	}
	b.AttentionLevel, b.AttentionReason = ClassifyAttention(b, now)

	if err := s.commit(ctx, b, previousVersion); err != nil {
		return Batch{}, err
	}

	s.log.Info("payout batch transitioned",
		"batch_id", id, "from", from, "to", target, "version", b.Version)
	if s.onUpdate != nil {
		s.onUpdate(b.Clone())
	}
	return b, nil
}

// ReconcileParams is the operator's resolution of an ambiguous or partial
// outcome. Notes are mandatory: they are the audit trail of why this
// resolution was chosen.
type ReconcileParams struct {
	ResolvedStatus  Status
	Notes           string
	SettledAmount   *int64
	ExpectedVersion *int64
}

// Reconcile applies the manual reconciliation transition. It is the only way
// forward for a batch in requires_reconciliation or partially_settled;
// everything else is INVALID_STATE regardless of input.
func (s *Service) Reconcile(ctx context.Context, id string, params ReconcileParams) (Batch, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return Batch{}, err
	}

	if b.Status != StatusRequiresReconciliation && b.Status != StatusPartiallySettled {
		return Batch{}, apierr.Conflict(apierr.CodeInvalidState,
			"payout batch %s is %q; reconciliation applies only to requires_reconciliation or partially_settled batches",
			id, string(b.Status))
	}
	if !resolvable[params.ResolvedStatus] {
		return Batch{}, apierr.Validation(apierr.CodeInvalidStatus,
			"%q is not a valid resolution; choose one of settled, partially_settled, failed, returned",
			string(params.ResolvedStatus))
	}
	if strings.TrimSpace(params.Notes) == "" {
		return Batch{}, apierr.Validation(apierr.CodeMissingNotes,
			"reconciliation requires a note explaining why this resolution was chosen")
	}
	if params.ExpectedVersion != nil && *params.ExpectedVersion != b.Version {
		return Batch{}, apierr.Conflict(apierr.CodeConcurrentModification,
			"payout batch %s is at version %d, request expected %d; fetch the latest state and retry deliberately",
			id, b.Version, *params.ExpectedVersion)
	}
	// Re-confirming the current status (partially_settled resolved as
	// partially_settled) is legal though unusual; any other move must be in
	// the transition table.
	if params.ResolvedStatus != b.Status && !Graph.IsLegal(b.Status, params.ResolvedStatus) {
		return Batch{}, apierr.Conflict(apierr.CodeInvalidTransition,
			"%s", Graph.ExplainIllegal(b.Status, params.ResolvedStatus))
	}
	if params.SettledAmount != nil {
		if *params.SettledAmount < 0 || *params.SettledAmount > b.NetAmount {
			return Batch{}, apierr.Validation(apierr.CodeInvalidAmount,
				"settledAmount %d is outside [0, %d]", *params.SettledAmount, b.NetAmount)
		}
	}

	from := b.Status
	previousVersion := b.Version
	now := s.now()
	b.Status = params.ResolvedStatus
	b.Version++
	b.AttentionLevel = AttentionNone
	b.AttentionReason = ""
	b.ReconciliationNotes = strings.TrimSpace(params.Notes)
	b.LastReconciledAt = &now
	if params.SettledAmount != nil {
		b.SettledAmount = *params.SettledAmount
	}
	switch params.ResolvedStatus {
	case StatusSettled:
		b.SettledAt = &now
		if params.SettledAmount == nil {
			b.SettledAmount = b.NetAmount
		}
	case StatusFailed:
		if b.FailureReason == "" {
			b.FailureReason = "resolved as failed during reconciliation"
		}
	}

	if err := s.commit(ctx, b, previousVersion); err != nil {
		return Batch{}, err
	}

	s.log.Info("payout batch reconciled",
		"batch_id", id, "from", from, "resolved", params.ResolvedStatus, "version", b.Version)
	if s.onUpdate != nil {
		s.onUpdate(b.Clone())
	}
	return b, nil
}

// UpdateItemStatus records one item's outcome and folds the per-item
// aggregates back onto the batch. The batch status itself is untouched:
// moving the batch is a separate, validated transition.
func (s *Service) UpdateItemStatus(ctx context.Context, batchID, itemID string, target ItemStatus, failureCode, failureMessage string) (Batch, error) {
	if !ItemGraph.Known(target) {
		return Batch{}, apierr.Validation(apierr.CodeInvalidStatus,
			"%q is not a payout item status", string(target))
	}

	b, err := s.load(ctx, batchID)
	if err != nil {
		return Batch{}, err
	}
	items, err := s.store.Items(ctx, batchID)
	if err != nil {
		return Batch{}, fmt.Errorf("payout: load items: %w", err)
	}

	var item *Item
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return Batch{}, apierr.Validation(apierr.CodePayoutNotFound,
			"no item %q in batch %q", itemID, batchID)
	}
	if item.Status == target {
		return b, nil
	}
	if !ItemGraph.IsLegal(item.Status, target) {
		return Batch{}, apierr.Conflict(apierr.CodeInvalidTransition,
			"%s", ItemGraph.ExplainIllegal(item.Status, target))
	}

	item.Status = target
	if target == ItemStatusFailed {
		item.FailureCode = failureCode
		item.FailureMessage = failureMessage
	}
	if err := s.store.UpdateItem(ctx, *item); err != nil {
		return Batch{}, fmt.Errorf("payout: update item: %w", err)
	}

	sum := SummarizeItems(items)
	previousVersion := b.Version
	b.SettledCount = sum.SettledCount
	b.FailedCount = sum.FailedCount
	b.SettledAmount = sum.SettledAmount
	b.Version++
	b.AttentionLevel, b.AttentionReason = ClassifyAttention(b, s.now())

	if err := s.commit(ctx, b, previousVersion); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// Get returns the batch with its attention level re-derived at read time, so
// an overdue in-transit batch warns without waiting for a write.
func (s *Service) Get(ctx context.Context, id string) (Batch, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	b.AttentionLevel, b.AttentionReason = ClassifyAttention(b, s.now())
	return b, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]Batch, error) {
	batches, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("payout: list: %w", err)
	}
	now := s.now()
	for i := range batches {
		batches[i].AttentionLevel, batches[i].AttentionReason = ClassifyAttention(batches[i], now)
	}
	return batches, nil
}

func (s *Service) Items(ctx context.Context, batchID string) ([]Item, error) {
	items, err := s.store.Items(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apierr.Validation(apierr.CodePayoutNotFound, "no payout batch with id %q", batchID)
		}
		return nil, err
	}
	return items, nil
}

func (s *Service) load(ctx context.Context, id string) (Batch, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Batch{}, apierr.Validation(apierr.CodePayoutNotFound, "no payout batch with id %q", id)
		}
		return Batch{}, fmt.Errorf("payout: load %s: %w", id, err)
	}
	return b, nil
}

func (s *Service) commit(ctx context.Context, b Batch, expectedVersion int64) error {
	if err := s.store.Update(ctx, b, expectedVersion); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return apierr.Conflict(apierr.CodeConcurrentModification,
				"payout batch %s was modified concurrently; fetch the latest state and retry deliberately", b.ID)
		}
		return fmt.Errorf("payout: update %s: %w", b.ID, err)
	}
	return nil
}

func maskAccount(account string) string {
	if len(account) <= 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}
