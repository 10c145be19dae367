package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arriviste0/personal-finance-sub000/internal/allocation"
	"github.com/arriviste0/personal-finance-sub000/internal/events"
	"github.com/arriviste0/personal-finance-sub000/internal/money"
	"github.com/arriviste0/personal-finance-sub000/internal/wallet"
)

// Engine performs atomic fund transfers between a user's wallet and their
// allocations, recording every movement in the transaction log. It owns the
// only write path to wallet and allocation balances.
//
// A per-user mutex serializes transfers touching the same wallet, so the
// conservation invariant (wallet + sum of allocations is constant) holds
// under arbitrary interleaving of requests. Operations on different users
// never block each other. The stores additionally guard their writes with
// compare-and-set, so interference from outside the engine surfaces as
// ErrPersistence after rollback instead of silent corruption.
type Engine struct {
	wallets     wallet.Store
	allocations allocation.Store
	log         Log
	publisher   events.Publisher // optional

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds a ledger engine over the given stores. The publisher may
// be nil; committed transfers are then not announced anywhere.
func NewEngine(wallets wallet.Store, allocations allocation.Store, log Log, publisher events.Publisher) *Engine {
	return &Engine{
		wallets:     wallets,
		allocations: allocations,
		log:         log,
		publisher:   publisher,
		locks:       make(map[string]*sync.Mutex),
	}
}

// WithUserLock runs fn while holding the user's transfer lock. The lifecycle
// service uses it to keep policy checks and inserts atomic with respect to
// concurrent creates and transfers for the same user. fn must not call back
// into the engine for the same user.
func (e *Engine) WithUserLock(userID string, fn func() error) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

// TransferInput describes a deposit or withdrawal against an allocation.
type TransferInput struct {
	UserID       string
	AllocationID string
	Amount       money.Amount
	Notes        string
	// ClientTxID is the caller's idempotency key. Replaying it returns the
	// original entry together with ErrDuplicateTransaction.
	ClientTxID string
}

// WalletCreditInput describes a direct wallet adjustment, such as the
// external injection of funds when a bank account is linked.
type WalletCreditInput struct {
	UserID     string
	Amount     money.Amount
	Notes      string
	ClientTxID string
}

// ReverseInput identifies a prior entry to compensate.
type ReverseInput struct {
	UserID     string
	EntryID    string
	Notes      string
	ClientTxID string
}

// Deposit moves amount from the user's wallet into the allocation.
func (e *Engine) Deposit(ctx context.Context, input TransferInput) (Entry, error) {
	if !input.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: deposit of %s", ErrInvalidAmount, input.Amount)
	}
	lock := e.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	if prior, ok, err := e.priorEntry(ctx, input.UserID, input.ClientTxID); err != nil {
		return Entry{}, err
	} else if ok {
		return prior, ErrDuplicateTransaction
	}

	return e.postLocked(ctx, posting{
		userID:       input.UserID,
		allocationID: input.AllocationID,
		kind:         KindDeposit,
		amount:       input.Amount,
		notes:        input.Notes,
		clientTxID:   input.ClientTxID,
	})
}

// Withdraw moves amount from the allocation back into the user's wallet.
func (e *Engine) Withdraw(ctx context.Context, input TransferInput) (Entry, error) {
	if !input.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: withdrawal of %s", ErrInvalidAmount, input.Amount)
	}
	lock := e.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	if prior, ok, err := e.priorEntry(ctx, input.UserID, input.ClientTxID); err != nil {
		return Entry{}, err
	} else if ok {
		return prior, ErrDuplicateTransaction
	}

	return e.postLocked(ctx, posting{
		userID:       input.UserID,
		allocationID: input.AllocationID,
		kind:         KindWithdrawal,
		amount:       input.Amount,
		notes:        input.Notes,
		clientTxID:   input.ClientTxID,
	})
}

// CreditWallet records an injection of external funds into the wallet. This
// is the one movement that is not a transfer, so conservation does not apply.
func (e *Engine) CreditWallet(ctx context.Context, input WalletCreditInput) (Entry, error) {
	if !input.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: credit of %s", ErrInvalidAmount, input.Amount)
	}
	lock := e.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	if prior, ok, err := e.priorEntry(ctx, input.UserID, input.ClientTxID); err != nil {
		return Entry{}, err
	} else if ok {
		return prior, ErrDuplicateTransaction
	}

	return e.postLocked(ctx, posting{
		userID:     input.UserID,
		kind:       KindDeposit,
		amount:     input.Amount,
		notes:      input.Notes,
		clientTxID: input.ClientTxID,
	})
}

// Reverse appends a compensating entry cancelling the economic effect of a
// prior entry. The log itself is never mutated; the balance update is an
// ordinary atomic transfer subject to the same overdraft checks.
func (e *Engine) Reverse(ctx context.Context, input ReverseInput) (Entry, error) {
	lock := e.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	if prior, ok, err := e.priorEntry(ctx, input.UserID, input.ClientTxID); err != nil {
		return Entry{}, err
	} else if ok {
		return prior, ErrDuplicateTransaction
	}

	orig, err := e.log.Get(ctx, input.EntryID)
	if errors.Is(err, ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: entry %s", ErrNotFound, input.EntryID)
	}
	if err != nil {
		return Entry{}, persistenceErr("load entry", err)
	}
	if orig.UserID != input.UserID {
		return Entry{}, fmt.Errorf("%w: entry %s", ErrForbidden, input.EntryID)
	}
	if orig.ReversalOf != "" {
		return Entry{}, fmt.Errorf("%w: entry %s is itself a reversal", ErrAlreadyReversed, input.EntryID)
	}
	if _, err := e.log.FindReversal(ctx, orig.ID); err == nil {
		return Entry{}, fmt.Errorf("%w: entry %s", ErrAlreadyReversed, input.EntryID)
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, persistenceErr("reversal lookup", err)
	}

	kind := KindWithdrawal
	if orig.Kind == KindWithdrawal {
		kind = KindDeposit
	}
	notes := input.Notes
	if notes == "" {
		notes = "reversal of " + orig.ID
	}
	return e.postLocked(ctx, posting{
		userID:       input.UserID,
		allocationID: orig.AllocationID,
		kind:         kind,
		amount:       orig.Amount,
		notes:        notes,
		clientTxID:   input.ClientTxID,
		reversalOf:   orig.ID,
	})
}

// CloseAllocation removes the allocation, first draining any remaining
// balance back to the wallet as a single atomic withdrawal. The drain entry
// is returned when one was recorded; a zero-balance close returns a zero
// Entry.
func (e *Engine) CloseAllocation(ctx context.Context, userID, allocationID string) (Entry, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	alloc, err := e.ownedAllocation(ctx, userID, allocationID)
	if err != nil {
		return Entry{}, err
	}

	if !alloc.Current.IsPositive() {
		if err := e.allocations.Delete(ctx, alloc.ID); err != nil {
			if errors.Is(err, allocation.ErrNotFound) {
				return Entry{}, fmt.Errorf("%w: allocation %s", ErrNotFound, allocationID)
			}
			return Entry{}, persistenceErr("delete allocation", err)
		}
		return Entry{}, nil
	}

	balance, err := e.walletBalance(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	if ok, err := e.wallets.CompareAndSet(ctx, userID, balance, balance.Add(alloc.Current)); err != nil || !ok {
		return Entry{}, persistenceErr("credit wallet", err)
	}
	drained := alloc
	drained.Current = money.Zero
	if ok, err := e.allocations.CompareAndSet(ctx, drained); err != nil || !ok {
		e.restoreWallet(ctx, userID, balance)
		return Entry{}, persistenceErr("drain allocation", err)
	}
	if err := e.allocations.Delete(ctx, alloc.ID); err != nil {
		e.restoreAllocation(ctx, alloc)
		e.restoreWallet(ctx, userID, balance)
		return Entry{}, persistenceErr("delete allocation", err)
	}

	entry := e.newEntry(posting{
		userID:       userID,
		allocationID: alloc.ID,
		kind:         KindWithdrawal,
		amount:       alloc.Current,
		notes:        "allocation closed",
	})
	if err := e.log.Append(ctx, entry); err != nil {
		recreated := alloc
		recreated.Version = 0
		_ = e.allocations.Create(ctx, recreated)
		e.restoreWallet(ctx, userID, balance)
		return Entry{}, persistenceErr("append entry", err)
	}
	e.publish(ctx, entry)
	return entry, nil
}

// Snapshot returns the latest committed state of the allocation.
func (e *Engine) Snapshot(ctx context.Context, allocationID string) (allocation.Allocation, error) {
	a, err := e.allocations.Get(ctx, allocationID)
	if errors.Is(err, allocation.ErrNotFound) {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation %s", ErrNotFound, allocationID)
	}
	if err != nil {
		return allocation.Allocation{}, persistenceErr("load allocation", err)
	}
	return a, nil
}

// WalletBalance returns the user's unallocated balance.
func (e *Engine) WalletBalance(ctx context.Context, userID string) (money.Amount, error) {
	return e.walletBalance(ctx, userID)
}

// History returns the user's ledger entries, newest first.
func (e *Engine) History(ctx context.Context, userID string) ([]Entry, error) {
	entries, err := e.log.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistenceErr("list entries", err)
	}
	return entries, nil
}

// posting is the common shape of every locked transfer. An empty allocationID
// denotes a direct wallet adjustment.
type posting struct {
	userID       string
	allocationID string
	kind         EntryKind
	amount       money.Amount
	notes        string
	clientTxID   string
	reversalOf   string
}

// postLocked applies the balance effects and appends the log entry, rolling
// back whatever half was applied when the other fails. The caller must hold
// the user's lock.
func (e *Engine) postLocked(ctx context.Context, p posting) (Entry, error) {
	balance, err := e.walletBalance(ctx, p.userID)
	if err != nil {
		return Entry{}, err
	}

	if p.allocationID == "" {
		newBalance := balance.Add(p.amount)
		if p.kind == KindWithdrawal {
			if balance.Less(p.amount) {
				return Entry{}, fmt.Errorf("%w: wallet holds %s, adjustment needs %s", ErrInsufficientFunds, balance, p.amount)
			}
			newBalance, _ = balance.Sub(p.amount)
		}
		if ok, err := e.wallets.CompareAndSet(ctx, p.userID, balance, newBalance); err != nil || !ok {
			return Entry{}, persistenceErr("adjust wallet", err)
		}
		entry := e.newEntry(p)
		if err := e.log.Append(ctx, entry); err != nil {
			e.restoreWallet(ctx, p.userID, balance)
			return Entry{}, persistenceErr("append entry", err)
		}
		e.publish(ctx, entry)
		return entry, nil
	}

	alloc, err := e.ownedAllocation(ctx, p.userID, p.allocationID)
	if err != nil {
		return Entry{}, err
	}

	var newBalance money.Amount
	next := alloc
	switch p.kind {
	case KindDeposit:
		if balance.Less(p.amount) {
			return Entry{}, fmt.Errorf("%w: wallet holds %s, deposit needs %s", ErrInsufficientFunds, balance, p.amount)
		}
		newBalance, _ = balance.Sub(p.amount)
		next.Current = alloc.Current.Add(p.amount)
	case KindWithdrawal:
		if alloc.Current.Less(p.amount) {
			return Entry{}, fmt.Errorf("%w: allocation %s holds %s, withdrawal needs %s", ErrInsufficientFunds, alloc.ID, alloc.Current, p.amount)
		}
		newBalance = balance.Add(p.amount)
		next.Current, _ = alloc.Current.Sub(p.amount)
	default:
		return Entry{}, fmt.Errorf("%w: unknown entry kind %q", ErrInvalidAmount, p.kind)
	}

	if ok, err := e.wallets.CompareAndSet(ctx, p.userID, balance, newBalance); err != nil || !ok {
		return Entry{}, persistenceErr("update wallet", err)
	}
	if ok, err := e.allocations.CompareAndSet(ctx, next); err != nil || !ok {
		e.restoreWallet(ctx, p.userID, balance)
		return Entry{}, persistenceErr("update allocation", err)
	}

	entry := e.newEntry(p)
	if err := e.log.Append(ctx, entry); err != nil {
		e.restoreAllocation(ctx, alloc)
		e.restoreWallet(ctx, p.userID, balance)
		return Entry{}, persistenceErr("append entry", err)
	}
	e.publish(ctx, entry)
	return entry, nil
}

func (e *Engine) newEntry(p posting) Entry {
	id := uuid.NewString()
	clientTxID := p.clientTxID
	if clientTxID == "" {
		clientTxID = id
	}
	return Entry{
		ID:           id,
		ClientTxID:   clientTxID,
		UserID:       p.userID,
		AllocationID: p.allocationID,
		Kind:         p.kind,
		Amount:       p.amount,
		Notes:        p.notes,
		ReversalOf:   p.reversalOf,
		CreatedAt:    time.Now().UTC(),
	}
}

func (e *Engine) priorEntry(ctx context.Context, userID, clientTxID string) (Entry, bool, error) {
	if clientTxID == "" {
		return Entry{}, false, nil
	}
	entry, err := e.log.FindByClientTxID(ctx, userID, clientTxID)
	if err == nil {
		return entry, true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Entry{}, false, nil
	}
	return Entry{}, false, persistenceErr("replay lookup", err)
}

func (e *Engine) ownedAllocation(ctx context.Context, userID, allocationID string) (allocation.Allocation, error) {
	alloc, err := e.allocations.Get(ctx, allocationID)
	if errors.Is(err, allocation.ErrNotFound) {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation %s", ErrNotFound, allocationID)
	}
	if err != nil {
		return allocation.Allocation{}, persistenceErr("load allocation", err)
	}
	if alloc.OwnerID != userID {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation %s", ErrForbidden, allocationID)
	}
	return alloc, nil
}

func (e *Engine) walletBalance(ctx context.Context, userID string) (money.Amount, error) {
	balance, err := e.wallets.Get(ctx, userID)
	if errors.Is(err, wallet.ErrNotFound) {
		return money.Amount{}, fmt.Errorf("%w: wallet for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return money.Amount{}, persistenceErr("load wallet", err)
	}
	return balance, nil
}

// restoreWallet sets the wallet back to saved. Under the user lock the only
// writer is this engine, so the compare-and-set succeeds unless the store
// itself is failing.
func (e *Engine) restoreWallet(ctx context.Context, userID string, saved money.Amount) {
	if current, err := e.wallets.Get(ctx, userID); err == nil {
		_, _ = e.wallets.CompareAndSet(ctx, userID, current, saved)
	}
}

func (e *Engine) restoreAllocation(ctx context.Context, saved allocation.Allocation) {
	if fresh, err := e.allocations.Get(ctx, saved.ID); err == nil {
		fresh.Current = saved.Current
		_, _ = e.allocations.CompareAndSet(ctx, fresh)
	}
}

func (e *Engine) publish(ctx context.Context, entry Entry) {
	if e.publisher == nil {
		return
	}
	_ = e.publisher.Publish(ctx, events.TransferRecorded{
		EntryID:      entry.ID,
		UserID:       entry.UserID,
		AllocationID: entry.AllocationID,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount,
		ReversalOf:   entry.ReversalOf,
		OccurredAt:   entry.CreatedAt,
	})
}

func persistenceErr(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
	return fmt.Errorf("%w: %s: concurrent update detected", ErrPersistence, op)
}
