package payout

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store used by tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]Batch
	items   map[string][]Item // keyed by batch id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches: make(map[string]Batch),
		items:   make(map[string][]Item),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, b Batch, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[b.ID]; ok {
		return ErrDuplicateID
	}
	s.batches[b.ID] = b.Clone()
	s.items[b.ID] = append([]Item(nil), items...)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, b Batch, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.batches[b.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	s.batches[b.ID] = b.Clone()
	return nil
}

func (s *MemoryStore) Items(ctx context.Context, batchID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.batches[batchID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Item(nil), s.items[batchID]...), nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.items[item.BatchID]
	if !ok {
		return ErrNotFound
	}
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return nil
		}
	}
	return ErrNotFound
}
