// Package idempotency makes money-moving endpoints safe under retry: a
// client-supplied key maps to a request fingerprint and a cached result, so
// a replayed request returns the original outcome instead of re-executing.
package idempotency

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// DefaultTTL is how long a committed record shields its key. After expiry
// the key may be reused.
const DefaultTTL = 24 * time.Hour

// Record maps an idempotency key to the fingerprint and result of its first
// request. The fingerprint never changes after first write.
type Record struct {
	Key         string
	Fingerprint string
	Result      []byte
	CreatedAt   time.Time
}

// Status discriminates the outcome of a Check.
type Status int

const (
	// StatusNew means the key is unseen or expired; the caller executes the
	// operation and commits the result.
	StatusNew Status = iota
	// StatusDuplicate means the key was seen with an identical fingerprint;
	// the caller must return CachedResult without re-executing.
	StatusDuplicate
	// StatusConflict means the key was seen with a different fingerprint.
	// Key reuse across distinct requests is a usage bug, not a retry.
	StatusConflict
)

// CheckResult is the tagged outcome of a Check. Exactly one of the optional
// fields is meaningful per status.
type CheckResult struct {
	Status       Status
	CachedResult []byte // set when Status == StatusDuplicate
	Reason       string // set when Status == StatusConflict
}

// Store is the key/fingerprint/result cache. Check-then-commit for a given
// key must be serialized with respect to concurrent requests bearing the
// same key.
type Store interface {
	Check(ctx context.Context, key, fingerprint string) (CheckResult, error)
	// Commit stores the result for key. Write-once: a later commit for an
	// already-committed key changes nothing.
	Commit(ctx context.Context, key, fingerprint string, result []byte) error
}

var (
	// ErrMissingKey signals the client supplied no idempotency key.
	ErrMissingKey = errors.New("idempotency: missing key")
	// ErrMalformedKey signals the key does not match the documented pattern.
	ErrMalformedKey = errors.New("idempotency: malformed key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// ValidateKey enforces the documented key shape. Keys are always client
// supplied: a server-generated key could not be re-sent after a lost
// response, defeating the protocol.
func ValidateKey(key string) error {
	if key == "" {
		return ErrMissingKey
	}
	if !keyPattern.MatchString(key) {
		return ErrMalformedKey
	}
	return nil
}
