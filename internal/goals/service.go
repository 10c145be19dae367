package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arriviste0/personal-finance-sub000/internal/allocation"
	"github.com/arriviste0/personal-finance-sub000/internal/ledger"
	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// Service manages allocation metadata: savings goals and the emergency fund.
// Balance mutation is delegated to the ledger engine without exception.
type Service struct {
	allocations allocation.Store
	engine      *ledger.Engine
}

// NewService builds the allocation lifecycle service.
func NewService(allocations allocation.Store, engine *ledger.Engine) *Service {
	return &Service{allocations: allocations, engine: engine}
}

// CreateInput captures the data needed to open an allocation.
type CreateInput struct {
	UserID string
	Name   string
	Kind   allocation.Kind
	Target money.Amount
}

// Create opens a zero-balance allocation. Names are unique per owner, and a
// user holds at most one emergency fund.
func (s *Service) Create(ctx context.Context, input CreateInput) (allocation.Allocation, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return allocation.Allocation{}, errors.New("allocation name is required")
	}
	kind := input.Kind
	if kind == "" {
		kind = allocation.KindGoal
	}
	if kind != allocation.KindGoal && kind != allocation.KindEmergency {
		return allocation.Allocation{}, fmt.Errorf("unknown allocation kind %q", kind)
	}

	a := allocation.Allocation{
		ID:        uuid.NewString(),
		OwnerID:   input.UserID,
		Name:      name,
		Kind:      kind,
		Current:   money.Zero,
		Target:    input.Target,
		CreatedAt: time.Now().UTC(),
	}

	// The policy scan and the insert must be atomic; the engine's per-user
	// lock keeps a concurrent Create for the same owner from slipping between
	// them.
	err := s.engine.WithUserLock(input.UserID, func() error {
		existing, err := s.allocations.ListByOwner(ctx, input.UserID)
		if err != nil {
			return fmt.Errorf("%w: list allocations: %v", ledger.ErrPersistence, err)
		}
		for _, sib := range existing {
			if strings.EqualFold(sib.Name, name) {
				return fmt.Errorf("%w: %q", ledger.ErrDuplicateName, name)
			}
			if kind == allocation.KindEmergency && sib.Kind == allocation.KindEmergency {
				return fmt.Errorf("%w: emergency fund already exists", ledger.ErrDuplicateName)
			}
		}
		if err := s.allocations.Create(ctx, a); err != nil {
			// A unique index on the owner's names backs the Postgres store, so
			// an insert racing from another process lands here.
			if errors.Is(err, allocation.ErrExists) {
				return fmt.Errorf("%w: %q", ledger.ErrDuplicateName, name)
			}
			return fmt.Errorf("%w: create allocation: %v", ledger.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return allocation.Allocation{}, err
	}
	return a, nil
}

// UpdateInput patches allocation metadata. Nil fields are left untouched.
type UpdateInput struct {
	Name   *string
	Target *money.Amount
}

// Update renames or retargets the allocation. The current balance is never
// touched here.
func (s *Service) Update(ctx context.Context, userID, id string, patch UpdateInput) (allocation.Allocation, error) {
	var updated allocation.Allocation
	err := s.engine.WithUserLock(userID, func() error {
		a, err := s.owned(ctx, userID, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return errors.New("allocation name is required")
			}
			if !strings.EqualFold(name, a.Name) {
				siblings, err := s.allocations.ListByOwner(ctx, userID)
				if err != nil {
					return fmt.Errorf("%w: list allocations: %v", ledger.ErrPersistence, err)
				}
				for _, sib := range siblings {
					if sib.ID != a.ID && strings.EqualFold(sib.Name, name) {
						return fmt.Errorf("%w: %q", ledger.ErrDuplicateName, name)
					}
				}
			}
			a.Name = name
		}
		if patch.Target != nil {
			a.Target = *patch.Target
		}

		ok, err := s.allocations.CompareAndSet(ctx, a)
		if err != nil {
			return fmt.Errorf("%w: update allocation: %v", ledger.ErrPersistence, err)
		}
		if !ok {
			return fmt.Errorf("%w: update allocation: concurrent update detected", ledger.ErrPersistence)
		}
		a.Version++
		updated = a
		return nil
	})
	if err != nil {
		return allocation.Allocation{}, err
	}
	return updated, nil
}

// Delete closes the allocation. A remaining balance is drained back to the
// wallet by the engine as part of the same operation; the drain entry (if
// any) is returned.
func (s *Service) Delete(ctx context.Context, userID, id string) (ledger.Entry, error) {
	return s.engine.CloseAllocation(ctx, userID, id)
}

// Get returns the allocation after checking ownership.
func (s *Service) Get(ctx context.Context, userID, id string) (allocation.Allocation, error) {
	return s.owned(ctx, userID, id)
}

// List returns all of the user's allocations.
func (s *Service) List(ctx context.Context, userID string) ([]allocation.Allocation, error) {
	result, err := s.allocations.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list allocations: %v", ledger.ErrPersistence, err)
	}
	return result, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (allocation.Allocation, error) {
	a, err := s.allocations.Get(ctx, id)
	if errors.Is(err, allocation.ErrNotFound) {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return allocation.Allocation{}, fmt.Errorf("%w: load allocation: %v", ledger.ErrPersistence, err)
	}
	if a.OwnerID != userID {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation %s", ledger.ErrForbidden, id)
	}
	return a, nil
}
