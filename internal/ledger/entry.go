package ledger

import (
	"context"
	"time"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	// KindDeposit moves funds from the wallet into an allocation, or credits
	// the wallet directly when AllocationID is empty.
	KindDeposit EntryKind = "deposit"
	// KindWithdrawal moves funds from an allocation back to the wallet, or
	// debits the wallet directly when AllocationID is empty.
	KindWithdrawal EntryKind = "withdrawal"
)

// Entry is an immutable record of one fund movement. Entries are append-only;
// undoing one is expressed as a new entry whose ReversalOf references it.
type Entry struct {
	ID           string       `json:"id"`
	ClientTxID   string       `json:"client_tx_id"`
	UserID       string       `json:"user_id"`
	AllocationID string       `json:"allocation_id,omitempty"` // empty for direct wallet adjustments
	Kind         EntryKind    `json:"kind"`
	Amount       money.Amount `json:"amount"`
	Notes        string       `json:"notes,omitempty"`
	ReversalOf   string       `json:"reversal_of,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Log is the append-only transaction record consumed by the engine.
type Log interface {
	// Append stores the entry. Appending an id that already exists is a no-op,
	// so retries after a reported failure are safe.
	Append(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	// FindByClientTxID locates a prior entry for replay detection, returning
	// ErrNotFound when the client transaction id is unseen.
	FindByClientTxID(ctx context.Context, userID, clientTxID string) (Entry, error)
	// ListByUser returns the user's entries ordered by timestamp descending.
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	// FindReversal locates the entry reversing originalID, if any.
	FindReversal(ctx context.Context, originalID string) (Entry, error)
}
