package user

import (
	"context"
	"errors"
	"time"
)

// User is a registered wallet owner. Sessions and credentials are handled by
// an external identity provider; this registry only resolves stable user ids.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

var (
	// ErrNotFound indicates no user exists with the requested id.
	ErrNotFound = errors.New("user not found")

	// ErrExists indicates the email is already registered.
	ErrExists = errors.New("user exists")
)

// Repository persists user records.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
