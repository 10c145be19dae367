package wallet

import (
	"context"
	"sync"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

type memoryStore struct {
	mu       sync.RWMutex
	balances map[string]money.Amount
}

// NewMemoryStore constructs a concurrency-safe in-memory wallet store for
// development mode and unit tests.
func NewMemoryStore() Store {
	return &memoryStore{balances: make(map[string]money.Amount)}
}

func (s *memoryStore) Create(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[userID]; exists {
		return ErrExists
	}
	s.balances[userID] = money.Zero
	return nil
}

func (s *memoryStore) Get(_ context.Context, userID string) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[userID]
	if !ok {
		return money.Amount{}, ErrNotFound
	}
	return balance, nil
}

func (s *memoryStore) CompareAndSet(_ context.Context, userID string, expected, next money.Amount) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.balances[userID]
	if !ok {
		return false, ErrNotFound
	}
	if !current.Equal(expected) {
		return false, nil
	}
	s.balances[userID] = next
	return true, nil
}

// SeedBalance is a test helper that force-sets a wallet balance when using the
// in-memory store.
func SeedBalance(s Store, userID string, balance money.Amount) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = balance
	}
}
