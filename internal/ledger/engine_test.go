package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arriviste0/personal-finance-sub000/internal/allocation"
	"github.com/arriviste0/personal-finance-sub000/internal/money"
	"github.com/arriviste0/personal-finance-sub000/internal/wallet"
)

type testFixture struct {
	engine      *Engine
	wallets     wallet.Store
	allocations allocation.Store
	log         Log
	userID      string
}

func newFixture(t *testing.T, walletBalance string) *testFixture {
	t.Helper()
	f := &testFixture{
		wallets:     wallet.NewMemoryStore(),
		allocations: allocation.NewMemoryStore(),
		log:         NewMemoryLog(),
		userID:      uuid.NewString(),
	}
	f.engine = NewEngine(f.wallets, f.allocations, f.log, nil)
	if err := f.wallets.Create(context.Background(), f.userID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	wallet.SeedBalance(f.wallets, f.userID, money.MustParse(walletBalance))
	return f
}

func (f *testFixture) addAllocation(t *testing.T, name, current string) allocation.Allocation {
	t.Helper()
	a := allocation.Allocation{
		ID:        uuid.NewString(),
		OwnerID:   f.userID,
		Name:      name,
		Kind:      allocation.KindGoal,
		Current:   money.MustParse(current),
		CreatedAt: time.Now().UTC(),
	}
	if err := f.allocations.Create(context.Background(), a); err != nil {
		t.Fatalf("create allocation: %v", err)
	}
	return a
}

// totalFunds is the conserved quantity: wallet plus every allocation balance.
func (f *testFixture) totalFunds(t *testing.T) money.Amount {
	t.Helper()
	ctx := context.Background()
	total, err := f.wallets.Get(ctx, f.userID)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	allocs, err := f.allocations.ListByOwner(ctx, f.userID)
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	for _, a := range allocs {
		total = total.Add(a.Current)
	}
	return total
}

func (f *testFixture) entryCount(t *testing.T) int {
	t.Helper()
	entries, err := f.log.ListByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	return len(entries)
}

func TestDepositMovesFundsAndLogs(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	entry, err := f.engine.Deposit(ctx, TransferInput{
		UserID:       f.userID,
		AllocationID: a.ID,
		Amount:       money.MustParse("30.00"),
		Notes:        "monthly saving",
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if entry.Kind != KindDeposit || !entry.Amount.Equal(money.MustParse("30.00")) {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	balance, err := f.engine.WalletBalance(ctx, f.userID)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if !balance.Equal(money.MustParse("70.00")) {
		t.Fatalf("expected wallet 70.00, got %s", balance)
	}
	snap, err := f.engine.Snapshot(ctx, a.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Current.Equal(money.MustParse("30.00")) {
		t.Fatalf("expected allocation 30.00, got %s", snap.Current)
	}
	if got := f.entryCount(t); got != 1 {
		t.Fatalf("expected exactly one log entry, got %d", got)
	}
}

func TestDepositRejectsOverdraft(t *testing.T) {
	f := newFixture(t, "50.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	before := f.totalFunds(t)
	_, err := f.engine.Deposit(ctx, TransferInput{
		UserID:       f.userID,
		AllocationID: a.ID,
		Amount:       money.MustParse("51.00"),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("50.00")) {
		t.Fatalf("expected wallet unchanged at 50.00, got %s", balance)
	}
	if !f.totalFunds(t).Equal(before) {
		t.Fatal("failed deposit must not move funds")
	}
	if got := f.entryCount(t); got != 0 {
		t.Fatalf("failed deposit must not log entries, got %d", got)
	}
}

func TestPreconditionFailuresHaveNoEffect(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "20.00")
	ctx := context.Background()
	before := f.totalFunds(t)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero deposit", func() error {
			_, err := f.engine.Deposit(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID})
			return err
		}, ErrInvalidAmount},
		{"unknown allocation", func() error {
			_, err := f.engine.Deposit(ctx, TransferInput{UserID: f.userID, AllocationID: uuid.NewString(), Amount: money.MustParse("1.00")})
			return err
		}, ErrNotFound},
		{"foreign allocation", func() error {
			_, err := f.engine.Deposit(ctx, TransferInput{UserID: uuid.NewString(), AllocationID: a.ID, Amount: money.MustParse("1.00")})
			return err
		}, ErrNotFound}, // the stranger has no wallet either; their lookup fails first
		{"overdrawn withdrawal", func() error {
			_, err := f.engine.Withdraw(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID, Amount: money.MustParse("20.01")})
			return err
		}, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		if err := tc.run(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if !f.totalFunds(t).Equal(before) {
		t.Fatal("precondition failures must leave balances untouched")
	}
	if got := f.entryCount(t); got != 0 {
		t.Fatalf("precondition failures must not log entries, got %d", got)
	}
}

func TestForeignAllocationIsForbidden(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	stranger := uuid.NewString()
	if err := f.wallets.Create(ctx, stranger); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	wallet.SeedBalance(f.wallets, stranger, money.MustParse("10.00"))

	_, err := f.engine.Deposit(ctx, TransferInput{UserID: stranger, AllocationID: a.ID, Amount: money.MustParse("1.00")})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRoundTripRestoresBalancesExactly(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	if _, err := f.engine.Deposit(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID, Amount: money.MustParse("30.00")}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.engine.Withdraw(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID, Amount: money.MustParse("30.00")}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("expected wallet 100.00, got %s", balance)
	}
	snap, _ := f.engine.Snapshot(ctx, a.ID)
	if !snap.Current.IsZero() {
		t.Fatalf("expected allocation 0.00, got %s", snap.Current)
	}
	if got := f.entryCount(t); got != 2 {
		t.Fatalf("expected two log entries, got %d", got)
	}
}

func TestConservationAcrossSequence(t *testing.T) {
	f := newFixture(t, "500.00")
	a := f.addAllocation(t, "vacation", "0.00")
	b := f.addAllocation(t, "new laptop", "0.00")
	ctx := context.Background()
	before := f.totalFunds(t)

	steps := []struct {
		withdraw bool
		alloc    string
		amount   string
	}{
		{false, a.ID, "120.00"},
		{false, b.ID, "75.50"},
		{true, a.ID, "40.25"},
		{false, a.ID, "10.10"},
		{true, b.ID, "75.50"},
		{true, a.ID, "89.85"},
	}
	for i, s := range steps {
		input := TransferInput{UserID: f.userID, AllocationID: s.alloc, Amount: money.MustParse(s.amount)}
		var err error
		if s.withdraw {
			_, err = f.engine.Withdraw(ctx, input)
		} else {
			_, err = f.engine.Deposit(ctx, input)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !f.totalFunds(t).Equal(before) {
			t.Fatalf("step %d: conservation violated, total %s", i, f.totalFunds(t))
		}
	}
}

func TestConcurrentWithdrawalRace(t *testing.T) {
	f := newFixture(t, "0.00")
	a := f.addAllocation(t, "emergency", "100.00")
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Withdraw(ctx, TransferInput{
				UserID:       f.userID,
				AllocationID: a.ID,
				Amount:       money.MustParse("100.00"),
			})
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one insufficient-funds, got %d/%d", successes, insufficient)
	}

	snap, err := f.engine.Snapshot(ctx, a.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Current.IsZero() {
		t.Fatalf("expected allocation drained to zero, got %s", snap.Current)
	}
	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("expected wallet 100.00, got %s", balance)
	}
	if got := f.entryCount(t); got != 1 {
		t.Fatalf("expected one log entry, got %d", got)
	}
}

func TestConcurrentDepositsConserveFunds(t *testing.T) {
	f := newFixture(t, "1000.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()
	before := f.totalFunds(t)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Deposit(ctx, TransferInput{
				UserID:       f.userID,
				AllocationID: a.ID,
				Amount:       money.MustParse("50.00"),
			}); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	if !f.totalFunds(t).Equal(before) {
		t.Fatalf("conservation violated, total %s", f.totalFunds(t))
	}
	snap, _ := f.engine.Snapshot(ctx, a.ID)
	if !snap.Current.Equal(money.MustParse("500.00")) {
		t.Fatalf("expected allocation 500.00, got %s", snap.Current)
	}
	if got := f.entryCount(t); got != workers {
		t.Fatalf("expected %d log entries, got %d", workers, got)
	}
}

func TestDuplicateClientTxIDReplaysOriginal(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	input := TransferInput{
		UserID:       f.userID,
		AllocationID: a.ID,
		Amount:       money.MustParse("25.00"),
		ClientTxID:   "client-tx-1",
	}
	first, err := f.engine.Deposit(ctx, input)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	replayed, err := f.engine.Deposit(ctx, input)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate transaction, got %v", err)
	}
	if replayed.ID != first.ID {
		t.Fatalf("expected original entry %s, got %s", first.ID, replayed.ID)
	}

	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("75.00")) {
		t.Fatalf("replay must not re-apply funds, wallet %s", balance)
	}
	if got := f.entryCount(t); got != 1 {
		t.Fatalf("replay must not append, got %d entries", got)
	}
}

func TestReverseDeposit(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	orig, err := f.engine.Deposit(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID, Amount: money.MustParse("40.00")})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	rev, err := f.engine.Reverse(ctx, ReverseInput{UserID: f.userID, EntryID: orig.ID})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.Kind != KindWithdrawal || rev.ReversalOf != orig.ID {
		t.Fatalf("unexpected reversal entry: %+v", rev)
	}

	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("expected wallet restored to 100.00, got %s", balance)
	}
	snap, _ := f.engine.Snapshot(ctx, a.ID)
	if !snap.Current.IsZero() {
		t.Fatalf("expected allocation 0.00, got %s", snap.Current)
	}

	if _, err := f.engine.Reverse(ctx, ReverseInput{UserID: f.userID, EntryID: orig.ID}); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("expected already reversed, got %v", err)
	}
	if _, err := f.engine.Reverse(ctx, ReverseInput{UserID: f.userID, EntryID: rev.ID}); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("expected reversal entries to be final, got %v", err)
	}
}

func TestReverseWalletCredit(t *testing.T) {
	f := newFixture(t, "0.00")
	ctx := context.Background()

	credit, err := f.engine.CreditWallet(ctx, WalletCreditInput{
		UserID: f.userID,
		Amount: money.MustParse("250.00"),
		Notes:  "bank account linked",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.AllocationID != "" {
		t.Fatalf("wallet credit must not reference an allocation: %+v", credit)
	}

	rev, err := f.engine.Reverse(ctx, ReverseInput{UserID: f.userID, EntryID: credit.ID})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.Kind != KindWithdrawal {
		t.Fatalf("expected withdrawal reversal, got %s", rev.Kind)
	}
	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.IsZero() {
		t.Fatalf("expected wallet back to zero, got %s", balance)
	}
}

func TestReverseForeignEntryForbidden(t *testing.T) {
	f := newFixture(t, "100.00")
	ctx := context.Background()

	credit, err := f.engine.CreditWallet(ctx, WalletCreditInput{UserID: f.userID, Amount: money.MustParse("10.00")})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if _, err := f.engine.Reverse(ctx, ReverseInput{UserID: uuid.NewString(), EntryID: credit.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCloseAllocationDrainsToWallet(t *testing.T) {
	f := newFixture(t, "10.00")
	a := f.addAllocation(t, "vacation", "75.00")
	ctx := context.Background()

	entry, err := f.engine.CloseAllocation(ctx, f.userID, a.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if entry.Kind != KindWithdrawal || !entry.Amount.Equal(money.MustParse("75.00")) {
		t.Fatalf("unexpected drain entry: %+v", entry)
	}

	balance, _ := f.engine.WalletBalance(ctx, f.userID)
	if !balance.Equal(money.MustParse("85.00")) {
		t.Fatalf("expected wallet 85.00, got %s", balance)
	}
	if _, err := f.engine.Snapshot(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected allocation gone, got %v", err)
	}
	if got := f.entryCount(t); got != 1 {
		t.Fatalf("expected one drain entry, got %d", got)
	}
}

func TestCloseEmptyAllocationLogsNothing(t *testing.T) {
	f := newFixture(t, "10.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	entry, err := f.engine.CloseAllocation(ctx, f.userID, a.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if entry.ID != "" {
		t.Fatalf("expected no drain entry, got %+v", entry)
	}
	if got := f.entryCount(t); got != 0 {
		t.Fatalf("expected no log entries, got %d", got)
	}
	if _, err := f.engine.Snapshot(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected allocation gone, got %v", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t, "100.00")
	a := f.addAllocation(t, "vacation", "0.00")
	ctx := context.Background()

	for _, amount := range []string{"10.00", "20.00", "30.00"} {
		if _, err := f.engine.Deposit(ctx, TransferInput{UserID: f.userID, AllocationID: a.ID, Amount: money.MustParse(amount)}); err != nil {
			t.Fatalf("deposit %s: %v", amount, err)
		}
		time.Sleep(time.Millisecond)
	}

	entries, err := f.engine.History(ctx, f.userID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Amount.Equal(money.MustParse("30.00")) || !entries[2].Amount.Equal(money.MustParse("10.00")) {
		t.Fatalf("history not newest-first: %v, %v", entries[0].Amount, entries[2].Amount)
	}
}
