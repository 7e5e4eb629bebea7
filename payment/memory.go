package payment

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store used by tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payments: make(map[string]Payment)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return ErrDuplicateID
	}
	s.payments[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, p Payment, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.payments[p.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	s.payments[p.ID] = p.Clone()
	return nil
}

// Len reports the number of stored payments, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}
