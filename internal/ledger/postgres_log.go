package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// PostgresLog persists ledger entries in PostgreSQL. The table carries a
// primary key on the entry id, which makes Append idempotent.
type PostgresLog struct {
	db *pgxpool.Pool
}

// NewPostgresLog builds a transaction log backed by PostgreSQL.
func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append inserts the entry, ignoring an id that was already written.
func (l *PostgresLog) Append(ctx context.Context, entry Entry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(entry.UserID)
	if err != nil {
		return err
	}
	var allocationID *uuid.UUID
	if entry.AllocationID != "" {
		aid, err := uuid.Parse(entry.AllocationID)
		if err != nil {
			return err
		}
		allocationID = &aid
	}
	var reversalOf *uuid.UUID
	if entry.ReversalOf != "" {
		rid, err := uuid.Parse(entry.ReversalOf)
		if err != nil {
			return err
		}
		reversalOf = &rid
	}
	_, err = l.db.Exec(ctx, `INSERT INTO entries (id, client_tx_id, user_id, allocation_id, kind, amount, notes, reversal_of, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
		id, entry.ClientTxID, userID, allocationID, string(entry.Kind), entry.Amount.Decimal(), entry.Notes, reversalOf, entry.CreatedAt.UTC())
	return err
}

const entryColumns = `id, client_tx_id, user_id, allocation_id, kind, amount, notes, reversal_of, created_at`

// Get fetches a single entry by id.
func (l *PostgresLog) Get(ctx context.Context, id string) (Entry, error) {
	eid, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, err
	}
	row := l.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, eid)
	return scanEntry(row)
}

// FindByClientTxID locates a prior posting for idempotent replay.
func (l *PostgresLog) FindByClientTxID(ctx context.Context, userID, clientTxID string) (Entry, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Entry{}, err
	}
	row := l.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries
        WHERE user_id = $1 AND client_tx_id = $2`, uid, clientTxID)
	return scanEntry(row)
}

// ListByUser returns the user's history, newest first.
func (l *PostgresLog) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM entries
        WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// FindReversal locates the compensating entry for originalID, if any.
func (l *PostgresLog) FindReversal(ctx context.Context, originalID string) (Entry, error) {
	oid, err := uuid.Parse(originalID)
	if err != nil {
		return Entry{}, err
	}
	row := l.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE reversal_of = $1`, oid)
	return scanEntry(row)
}

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var (
		id           uuid.UUID
		userID       uuid.UUID
		allocationID *uuid.UUID
		kind         string
		amount       decimal.Decimal
		reversalOf   *uuid.UUID
		createdAt    time.Time
		e            Entry
	)
	err := row.Scan(&id, &e.ClientTxID, &userID, &allocationID, &kind, &amount, &e.Notes, &reversalOf, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.ID = id.String()
	e.UserID = userID.String()
	if allocationID != nil {
		e.AllocationID = allocationID.String()
	}
	if reversalOf != nil {
		e.ReversalOf = reversalOf.String()
	}
	e.Kind = EntryKind(kind)
	e.CreatedAt = createdAt.UTC()
	if e.Amount, err = money.FromDecimal(amount); err != nil {
		return Entry{}, err
	}
	return e, nil
}
