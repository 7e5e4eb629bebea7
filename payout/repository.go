package payout

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals the requested batch does not exist.
	ErrNotFound = errors.New("payout: not found")
	// ErrVersionConflict signals the stored version no longer matches the
	// version the writer read.
	ErrVersionConflict = errors.New("payout: version conflict")
	// ErrDuplicateID signals a create collided with an existing id.
	ErrDuplicateID = errors.New("payout: duplicate id")
)

// Store abstracts batch persistence behind get/create/put-with-version so a
// transactional database can replace the in-memory maps.
type Store interface {
	Get(ctx context.Context, id string) (Batch, error)
	List(ctx context.Context, limit int) ([]Batch, error)
	Create(ctx context.Context, b Batch, items []Item) error
	// Update commits b only if the stored version still equals
	// expectedVersion, and returns ErrVersionConflict otherwise.
	Update(ctx context.Context, b Batch, expectedVersion int64) error
	Items(ctx context.Context, batchID string) ([]Item, error)
	UpdateItem(ctx context.Context, item Item) error
}
