package user

import (
	"context"
	"errors"
	"testing"

	"github.com/arriviste0/personal-finance-sub000/internal/wallet"
)

func TestRegisterProvisionsWallet(t *testing.T) {
	wallets := wallet.NewMemoryStore()
	svc := NewService(NewMemoryRepository(), wallets)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "Ada@Example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}

	balance, err := wallets.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("wallet must exist after registration: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("new wallet must start at zero, got %s", balance)
	}

	resolved, err := svc.Resolve(ctx, u.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, resolved.ID)
	}
}

func TestRegisterRejectsBlankNameAndDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), wallet.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "   "}); err == nil {
		t.Fatal("expected error for blank name")
	}

	if _, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Name: "Other", Email: "ADA@example.com"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}
