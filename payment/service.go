package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"payflow/apierr"
	"payflow/idempotency"
	"payflow/lifecycle"
	"payflow/logger"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// CreateParams are the semantic fields of a creation request. The
// idempotency key is passed separately and never participates in the
// request fingerprint.
type CreateParams struct {
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	MerchantID string            `json:"merchantId"`
	CustomerID string            `json:"customerId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CreateResult reports whether the payment was created by this call or
// replayed from the idempotency cache.
type CreateResult struct {
	Payment  Payment
	Replayed bool
}

// TransitionParams carries the optional inputs of a transition request.
type TransitionParams struct {
	// ExpectedVersion, when set, rejects the write if a concurrent writer
	// got there first.
	ExpectedVersion *int64
	FailureCode     string
	FailureMessage  string
}

// Service owns payment mutations. Every status write goes through the
// transition table and bumps the version atomically with the status.
type Service struct {
	store       Store
	idem        idempotency.Store
	log         *logger.Logger
	group       singleflight.Group
	idGenerator func() string
	now         func() time.Time
	onUpdate    func(Payment)
}

func NewService(store Store, idem idempotency.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:       store,
		idem:        idem,
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

// WithUpdateHook registers a callback invoked after every successful create
// or transition, outside any lock.
func (s *Service) WithUpdateHook(fn func(Payment)) *Service {
	s.onUpdate = fn
	return s
}

// Create makes payment creation safe under retry: the same key with the same
// body replays the original payment, the same key with a different body is a
// conflict, and concurrent calls with the same key collapse into one
// execution.
func (s *Service) Create(ctx context.Context, params CreateParams, idempotencyKey string) (CreateResult, error) {
	if err := idempotency.ValidateKey(idempotencyKey); err != nil {
		if errors.Is(err, idempotency.ErrMissingKey) {
			return CreateResult{}, apierr.Validation(apierr.CodeMissingIdempotencyKey,
				"an Idempotency-Key is required on payment creation; supply a unique key per logical request")
		}
		return CreateResult{}, apierr.Validation(apierr.CodeInvalidIdempotencyKey,
			"idempotency key %q is malformed; keys must match [A-Za-z0-9_-]{1,255}", idempotencyKey)
	}
	if params.Amount <= 0 {
		return CreateResult{}, apierr.Validation(apierr.CodeInvalidAmount,
			"amount must be a positive integer in minor units, got %d", params.Amount)
	}
	if !currencyPattern.MatchString(params.Currency) {
		return CreateResult{}, apierr.Validation(apierr.CodeInvalidCurrency,
			"currency %q is not a three-letter ISO 4217 code", params.Currency)
	}
	if params.MerchantID == "" {
		return CreateResult{}, apierr.Validation(apierr.CodeInvalidRequest,
			"merchantId is required")
	}

	fingerprint, err := idempotency.Fingerprint(params)
	if err != nil {
		return CreateResult{}, err
	}

	// singleflight serializes check-then-commit per key: two concurrent
	// creations with the same key share one execution and one payment.
	v, err, shared := s.group.Do(idempotencyKey, func() (any, error) {
		res, err := s.createOnce(ctx, params, idempotencyKey, fingerprint)
		if err != nil {
			return nil, err
		}
		return flight{result: res, fingerprint: fingerprint}, nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	f := v.(flight)
	if shared {
		// A joiner only shares the flight's payment if it asked for the same
		// thing; a differing fingerprint is key reuse, not a retry.
		if f.fingerprint != fingerprint {
			return CreateResult{}, apierr.Conflict(apierr.CodeIdempotencyConflict,
				"idempotency key %q was already used for a different request; use a fresh key for new requests", idempotencyKey)
		}
		f.result.Replayed = true
	}
	return f.result, nil
}

// flight is what one singleflight execution hands to its joiners: the
// created (or replayed) payment plus the fingerprint it was created for.
type flight struct {
	result      CreateResult
	fingerprint string
}

func (s *Service) createOnce(ctx context.Context, params CreateParams, key, fingerprint string) (CreateResult, error) {
	check, err := s.idem.Check(ctx, key, fingerprint)
	if err != nil {
		return CreateResult{}, fmt.Errorf("payment: idempotency check: %w", err)
	}
	switch check.Status {
	case idempotency.StatusDuplicate:
		var cached Payment
		if err := json.Unmarshal(check.CachedResult, &cached); err != nil {
			return CreateResult{}, fmt.Errorf("payment: decode cached result: %w", err)
		}
		s.log.Debug("payment create replayed", "payment_id", cached.ID, "idempotency_key", key)
		return CreateResult{Payment: cached, Replayed: true}, nil
	case idempotency.StatusConflict:
		return CreateResult{}, apierr.Conflict(apierr.CodeIdempotencyConflict,
			"idempotency key %q was already used for a different request; use a fresh key for new requests", key)
	}

	now := s.now()
	p := Payment{
		ID:             s.idGenerator(),
		IdempotencyKey: key,
		Status:         StatusDraft,
		Amount:         params.Amount,
		Currency:       params.Currency,
		MerchantID:     params.MerchantID,
		CustomerID:     params.CustomerID,
		Metadata:       params.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return CreateResult{}, fmt.Errorf("payment: create: %w", err)
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		return CreateResult{}, fmt.Errorf("payment: encode result: %w", err)
	}
	if err := s.idem.Commit(ctx, key, fingerprint, encoded); err != nil {
		return CreateResult{}, fmt.Errorf("payment: idempotency commit: %w", err)
	}

	s.log.Info("payment created",
		"payment_id", p.ID, "amount", p.Amount, "currency", p.Currency, "merchant_id", p.MerchantID)
	if s.onUpdate != nil {
		s.onUpdate(p.Clone())
	}
	return CreateResult{Payment: p}, nil
}

// Transition moves a payment to target. A request naming the current status
// is a no-op success so retried mutations never error; an illegal target is
// rejected with an explanation of the legal ones.
func (s *Service) Transition(ctx context.Context, id string, target Status, params TransitionParams) (Payment, error) {
	if !Graph.Known(target) {
		return Payment{}, apierr.Validation(apierr.CodeInvalidStatus,
			"%q is not a payment status", string(target))
	}

	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Payment{}, apierr.Validation(apierr.CodePaymentNotFound,
				"no payment with id %q", id)
		}
		return Payment{}, fmt.Errorf("payment: load %s: %w", id, err)
	}

	if params.ExpectedVersion != nil && *params.ExpectedVersion != p.Version {
		return Payment{}, apierr.Conflict(apierr.CodeConcurrentModification,
			"payment %s is at version %d, request expected %d; fetch the latest state and retry deliberately",
			id, p.Version, *params.ExpectedVersion)
	}

	if p.Status == target {
		// Idempotent re-application. The entity is untouched.
		return p, nil
	}

	if !Graph.IsLegal(p.Status, target) {
		return Payment{}, apierr.Conflict(apierr.CodeInvalidTransition,
			"%s", Graph.ExplainIllegal(p.Status, target))
	}

	from := p.Status
	previousVersion := p.Version
	now := s.now()
	p.Status = target
	p.Version++
	p.UpdatedAt = now
	if Graph.IsTerminal(target) {
		p.CompletedAt = &now
	}
	if target == StatusFailed {
		p.FailureCode = params.FailureCode
		p.FailureMessage = params.FailureMessage
		if p.FailureCode == "" {
			p.FailureCode = "processing_error"
		}
	} else {
		p.FailureCode = ""
		p.FailureMessage = ""
	}

	if err := s.store.Update(ctx, p, previousVersion); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return Payment{}, apierr.Conflict(apierr.CodeConcurrentModification,
				"payment %s was modified concurrently; fetch the latest state and retry deliberately", id)
		}
		return Payment{}, fmt.Errorf("payment: update %s: %w", id, err)
	}

	s.log.Info("payment transitioned",
		"payment_id", id, "from", from, "to", target, "version", p.Version)
	if s.onUpdate != nil {
		s.onUpdate(p.Clone())
	}
	return p, nil
}

// Get returns the payment by id.
func (s *Service) Get(ctx context.Context, id string) (Payment, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Payment{}, apierr.Validation(apierr.CodePaymentNotFound, "no payment with id %q", id)
		}
		return Payment{}, err
	}
	return p, nil
}

// AvailableActions lists the legal transitions out of status, for rendering
// operator actions.
func (s *Service) AvailableActions(status Status) []lifecycle.Transition[Status] {
	return Graph.From(status)
}
