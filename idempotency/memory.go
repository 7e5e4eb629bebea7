package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in-process. Check-then-commit is serialized per
// key by the store mutex; a caller-level guard (the payment service uses
// singleflight) keeps the execute step between the two calls exclusive.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]Record),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Check(ctx context.Context, key, fingerprint string) (CheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return CheckResult{Status: StatusNew}, nil
	}
	if s.now().Sub(rec.CreatedAt) > s.ttl {
		// Expired records are treated as absent; the key is free again.
		delete(s.records, key)
		return CheckResult{Status: StatusNew}, nil
	}
	if rec.Fingerprint != fingerprint {
		return CheckResult{
			Status: StatusConflict,
			Reason: "idempotency key was already used for a different request body",
		}, nil
	}
	cached := make([]byte, len(rec.Result))
	copy(cached, rec.Result)
	return CheckResult{Status: StatusDuplicate, CachedResult: cached}, nil
}

func (s *MemoryStore) Commit(ctx context.Context, key, fingerprint string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && s.now().Sub(rec.CreatedAt) <= s.ttl {
		// Write-once per key.
		return nil
	}
	stored := make([]byte, len(result))
	copy(stored, result)
	s.records[key] = Record{
		Key:         key,
		Fingerprint: fingerprint,
		Result:      stored,
		CreatedAt:   s.now(),
	}
	return nil
}

// Len reports live (unexpired) records, for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if s.now().Sub(rec.CreatedAt) <= s.ttl {
			n++
		}
	}
	return n
}
