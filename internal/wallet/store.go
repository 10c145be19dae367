package wallet

import (
	"context"
	"errors"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

var (
	// ErrNotFound indicates no wallet exists for the requested user.
	ErrNotFound = errors.New("wallet not found")

	// ErrExists indicates a wallet was already provisioned for the user.
	ErrExists = errors.New("wallet exists")
)

// Store persists the unallocated balance of each user. Balance writes go
// through CompareAndSet so concurrent updates cannot silently overwrite each
// other; the ledger engine owns the only write path.
type Store interface {
	Create(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (money.Amount, error)
	// CompareAndSet replaces the balance only if it still equals expected.
	// It returns false (and no error) when the stored balance has moved on.
	CompareAndSet(ctx context.Context, userID string, expected, next money.Amount) (bool, error)
}
