// Package apierr carries the shared error taxonomy for payflow services.
// Every rejection exposes a machine code, a human explanation, and whether
// the caller may retry the same request unchanged.
package apierr

import "fmt"

// Kind buckets an error by what the caller should do about it.
type Kind string

const (
	// KindValidation marks bad input shape or value. Client fault, never
	// retryable, rejected before any state mutation.
	KindValidation Kind = "validation"
	// KindConflict marks idempotency conflicts, concurrent modification,
	// and invalid state transitions. Not retryable as-is; the caller must
	// fetch current state and decide.
	KindConflict Kind = "conflict"
	// KindTransient marks timeouts, network failures, and upstream 5xx.
	// Retryable by the caller with backoff.
	KindTransient Kind = "transient"
	// KindTerminal marks legitimate domain end states (e.g. a batch failed
	// at the bank). Not a bug; requires human reconciliation.
	KindTerminal Kind = "terminal"
)

// Stable machine codes surfaced to clients.
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeMissingIdempotencyKey  = "MISSING_IDEMPOTENCY_KEY"
	CodeInvalidIdempotencyKey  = "INVALID_IDEMPOTENCY_KEY"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInvalidCurrency        = "INVALID_CURRENCY"
	CodeIdempotencyConflict    = "IDEMPOTENCY_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeInvalidState           = "INVALID_STATE"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeMissingNotes           = "MISSING_NOTES"
	CodePaymentNotFound        = "PAYMENT_NOT_FOUND"
	CodePayoutNotFound         = "PAYOUT_NOT_FOUND"
	CodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
)

// Error is a structured rejection. Message is load-bearing: operators decide
// their next action from it alone.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether retrying the identical request can succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Transient(code, format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Terminal(code, format string, args ...any) *Error {
	return &Error{Kind: KindTerminal, Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the machine code when err is a structured rejection, or ""
// for plain errors.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
