package allocation

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Allocation
}

// NewMemoryStore constructs an in-memory allocation store for development
// mode and unit tests.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Allocation)}
}

func (s *memoryStore) Create(_ context.Context, a Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[a.ID]; exists {
		return ErrExists
	}
	s.records[a.ID] = a
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.records[id]
	if !ok {
		return Allocation{}, ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) ListByOwner(_ context.Context, ownerID string) ([]Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Allocation
	for _, a := range s.records {
		if a.OwnerID == ownerID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memoryStore) CompareAndSet(_ context.Context, next Allocation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[next.ID]
	if !ok {
		return false, ErrNotFound
	}
	if current.Version != next.Version {
		return false, nil
	}
	next.Version++
	s.records[next.ID] = next
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}
