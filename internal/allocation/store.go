package allocation

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the allocation does not exist.
	ErrNotFound = errors.New("allocation not found")

	// ErrExists indicates an allocation with the same id already exists.
	ErrExists = errors.New("allocation exists")
)

// Store persists allocations. CompareAndSet is version-guarded: the write
// applies only when the stored record still carries the version the caller
// read, so concurrent writers cannot clobber each other.
type Store interface {
	Create(ctx context.Context, a Allocation) error
	Get(ctx context.Context, id string) (Allocation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Allocation, error)
	// CompareAndSet writes next if the stored version equals next.Version,
	// bumping the version on success. Returns false on a version mismatch.
	CompareAndSet(ctx context.Context, next Allocation) (bool, error)
	Delete(ctx context.Context, id string) error
}
