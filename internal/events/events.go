package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// TransferRecorded is emitted after a ledger entry commits.
type TransferRecorded struct {
	EntryID      string       `json:"entry_id"`
	UserID       string       `json:"user_id"`
	AllocationID string       `json:"allocation_id,omitempty"`
	Kind         string       `json:"kind"`
	Amount       money.Amount `json:"amount"`
	ReversalOf   string       `json:"reversal_of,omitempty"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// Publisher delivers transfer events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event TransferRecorded) error
}

// LogPublisher writes events to the logger; used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher builds a logger-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(_ context.Context, event TransferRecorded) error {
	p.logger.Info("transfer recorded",
		slog.String("entry_id", event.EntryID),
		slog.String("user_id", event.UserID),
		slog.String("allocation_id", event.AllocationID),
		slog.String("kind", event.Kind),
		slog.String("amount", event.Amount.String()),
	)
	return nil
}
