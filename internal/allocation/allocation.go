package allocation

import (
	"time"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// Kind distinguishes ordinary savings goals from the single emergency fund.
type Kind string

const (
	KindGoal      Kind = "goal"
	KindEmergency Kind = "emergency"
)

// Allocation is a named bucket holding a portion of a user's funds, tracked
// separately from the wallet. Balance mutation is reserved to the ledger
// engine; the lifecycle service only touches metadata.
type Allocation struct {
	ID        string
	OwnerID   string
	Name      string
	Kind      Kind
	Current   money.Amount
	Target    money.Amount // zero means no target
	Version   int64
	CreatedAt time.Time
}

// Complete reports whether the allocation reached its target. Allocations
// without a target are never complete.
func (a Allocation) Complete() bool {
	return a.Target.IsPositive() && a.Current.Cmp(a.Target) >= 0
}
