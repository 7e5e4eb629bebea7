package payment

import "time"

// Status is a payment lifecycle state. Mutated only through validated
// transitions; terminal states are retained forever for audit.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusSubmitted      Status = "submitted"
	StatusProcessing     Status = "processing"
	StatusRequiresAction Status = "requires_action"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusCanceled       Status = "canceled"
)

// Payment is an intent to collect money once.
type Payment struct {
	ID             string
	IdempotencyKey string // set once at creation, immutable
	Status         Status
	Amount         int64 // minor units, > 0
	Currency       string
	MerchantID     string
	CustomerID     string
	TransactionIDs []string
	FailureCode    string
	FailureMessage string
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	// Version backs optimistic concurrency; bumped atomically with every
	// status write.
	Version int64
}

// Clone returns a deep copy so stores never hand out aliased state.
func (p Payment) Clone() Payment {
	out := p
	if p.TransactionIDs != nil {
		out.TransactionIDs = append([]string(nil), p.TransactionIDs...)
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
