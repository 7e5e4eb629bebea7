package payment

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals the requested payment does not exist.
	ErrNotFound = errors.New("payment: not found")
	// ErrVersionConflict signals the stored version no longer matches the
	// version the writer read. The write is rejected, never merged.
	ErrVersionConflict = errors.New("payment: version conflict")
	// ErrDuplicateID signals a create collided with an existing id.
	ErrDuplicateID = errors.New("payment: duplicate id")
)

// Store abstracts persistence so a transactional database can replace the
// in-memory implementation without touching service logic.
type Store interface {
	Get(ctx context.Context, id string) (Payment, error)
	Create(ctx context.Context, p Payment) error
	// Update commits p only if the stored version still equals
	// expectedVersion, and returns ErrVersionConflict otherwise.
	Update(ctx context.Context, p Payment, expectedVersion int64) error
}
