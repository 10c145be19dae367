package ledger

import "errors"

var (
	// ErrInvalidAmount rejects non-positive or malformed amounts before any
	// mutation takes place.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound indicates an unknown user, allocation or ledger entry.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the allocation or entry is not owned by the caller.
	ErrForbidden = errors.New("forbidden")

	// ErrInsufficientFunds occurs when a transfer would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateName rejects a second allocation with the same name (or a
	// second emergency fund) for one owner.
	ErrDuplicateName = errors.New("duplicate allocation name")

	// ErrDuplicateTransaction indicates the client transaction identifier was
	// already processed; the original entry is returned alongside it.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAlreadyReversed rejects a second compensating reversal of one entry.
	ErrAlreadyReversed = errors.New("entry already reversed")

	// ErrPersistence reports a storage failure during the atomic effect step.
	// Any partially applied mutation has been rolled back; the caller may
	// retry with the same client transaction id.
	ErrPersistence = errors.New("persistence failure")
)
