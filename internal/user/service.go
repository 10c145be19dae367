package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arriviste0/personal-finance-sub000/internal/wallet"
)

// Service manages user registration and resolution. Registering a user also
// provisions their zero-balance wallet.
type Service struct {
	repo    Repository
	wallets wallet.Store
}

// NewService builds a user service.
func NewService(repo Repository, wallets wallet.Store) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// RegisterInput captures the data required to register a user.
type RegisterInput struct {
	Name  string
	Email string
}

// Register creates the user record and their wallet.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return User{}, errors.New("name is required")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" {
		if _, err := s.repo.FindByEmail(ctx, email); err == nil {
			return User{}, ErrExists
		} else if !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
	}

	u := User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	if err := s.wallets.Create(ctx, u.ID); err != nil && !errors.Is(err, wallet.ErrExists) {
		return User{}, err
	}
	return u, nil
}

// Resolve returns the user for a stable user id.
func (s *Service) Resolve(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
