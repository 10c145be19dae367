package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// PostgresStore keeps allocations in PostgreSQL with optimistic versioning.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds an allocation store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new allocation record.
func (s *PostgresStore) Create(ctx context.Context, a Allocation) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(a.OwnerID)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO allocations (id, owner_id, name, kind, current, target, version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
		id, ownerID, a.Name, string(a.Kind), a.Current.Decimal(), a.Target.Decimal(), a.Version, a.CreatedAt.UTC())
	if err != nil {
		// The table carries a unique index on (owner_id, lower(name)), so an
		// insert racing in from another process surfaces here.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Get fetches one allocation by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Allocation, error) {
	aid, err := uuid.Parse(id)
	if err != nil {
		return Allocation{}, err
	}
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, name, kind, current, target, version, created_at
        FROM allocations WHERE id = $1`, aid)
	return scanAllocation(row)
}

// ListByOwner returns the user's allocations ordered by creation time.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Allocation, error) {
	oid, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, name, kind, current, target, version, created_at
        FROM allocations WHERE owner_id = $1 ORDER BY created_at`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// CompareAndSet writes the record when the stored version still matches,
// bumping the version in the same statement.
func (s *PostgresStore) CompareAndSet(ctx context.Context, next Allocation) (bool, error) {
	id, err := uuid.Parse(next.ID)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `UPDATE allocations
        SET name = $1, kind = $2, current = $3, target = $4, version = version + 1
        WHERE id = $5 AND version = $6`,
		next.Name, string(next.Kind), next.Current.Decimal(), next.Target.Decimal(), id, next.Version)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := s.Get(ctx, next.ID); err != nil {
		return false, err
	}
	return false, nil
}

// Delete removes the allocation record.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	aid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM allocations WHERE id = $1`, aid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row rowScanner) (Allocation, error) {
	var (
		id        uuid.UUID
		ownerID   uuid.UUID
		kind      string
		current   decimal.Decimal
		target    decimal.Decimal
		createdAt time.Time
		a         Allocation
	)
	err := row.Scan(&id, &ownerID, &a.Name, &kind, &current, &target, &a.Version, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Allocation{}, ErrNotFound
	}
	if err != nil {
		return Allocation{}, err
	}
	a.ID = id.String()
	a.OwnerID = ownerID.String()
	a.Kind = Kind(kind)
	a.CreatedAt = createdAt.UTC()
	if a.Current, err = money.FromDecimal(current); err != nil {
		return Allocation{}, err
	}
	if a.Target, err = money.FromDecimal(target); err != nil {
		return Allocation{}, err
	}
	return a, nil
}
