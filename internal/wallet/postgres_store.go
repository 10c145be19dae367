package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// PostgresStore keeps wallet balances in PostgreSQL, one row per user.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a wallet store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a zero-balance wallet row for the user.
func (s *PostgresStore) Create(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Get returns the current wallet balance for the user.
func (s *PostgresStore) Get(ctx context.Context, userID string) (money.Amount, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return money.Amount{}, err
	}
	var balance decimal.Decimal
	err = s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, uid).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return money.Amount{}, ErrNotFound
	}
	if err != nil {
		return money.Amount{}, err
	}
	return money.FromDecimal(balance)
}

// CompareAndSet updates the balance only when the stored value still matches
// expected, relying on the conditional UPDATE for atomicity.
func (s *PostgresStore) CompareAndSet(ctx context.Context, userID string, expected, next money.Amount) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE user_id = $2 AND balance = $3`,
		next.Decimal(), uid, expected.Decimal())
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Distinguish a missing wallet from a stale expectation.
	if _, err := s.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}
