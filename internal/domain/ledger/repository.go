package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists financial ledgers as event streams and answers the
// diagnostic queries the reconciliation and alerting services depend on
type Repository interface {
	// Save appends the ledger's uncommitted events, guarded by the
	// aggregate version. Returns ErrVersionConflict when another writer
	// advanced the stream first.
	Save(ctx context.Context, l *FinancialLedger) error

	FindByID(ctx context.Context, id uuid.UUID) (*FinancialLedger, error)
	FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*FinancialLedger, error)

	// FindByClientIDAndStatus returns nil, nil when no ledger matches
	FindByClientIDAndStatus(ctx context.Context, clientID uuid.UUID, status LedgerStatus) (*FinancialLedger, error)

	FindActiveByPayeeID(ctx context.Context, payeeID string) ([]*FinancialLedger, error)
	FindByFundingSourceCode(ctx context.Context, fundingSourceCode string) ([]*FinancialLedger, error)

	// Diagnostic queries for reconciliation and alerting
	FindUnbalancedLedgers(ctx context.Context) ([]*FinancialLedger, error)
	FindLedgersWithOverdueArrears(ctx context.Context, olderThan time.Time) ([]*FinancialLedger, error)
	FindLedgersWithUnmatchedDeposits(ctx context.Context, olderThan time.Time) ([]*FinancialLedger, error)
}

// ErrLedgerNotFound indicates a missing ledger aggregate
type ErrLedgerNotFound struct {
	LedgerID uuid.UUID
}

func (e ErrLedgerNotFound) Error() string {
	return "financial ledger not found: " + e.LedgerID.String()
}

// Is implements the errors.Is interface for ErrLedgerNotFound
func (e ErrLedgerNotFound) Is(target error) bool {
	t, ok := target.(ErrLedgerNotFound)
	if !ok {
		return false
	}
	// An empty target LedgerID matches any ErrLedgerNotFound
	if t.LedgerID == uuid.Nil {
		return true
	}
	return e.LedgerID == t.LedgerID
}

// ErrVersionConflict indicates a concurrent writer advanced the event stream
// between load and save; the caller should reload and retry.
type ErrVersionConflict struct {
	LedgerID uuid.UUID
}

func (e ErrVersionConflict) Error() string {
	return "concurrent modification of financial ledger: " + e.LedgerID.String()
}

// Is implements the errors.Is interface for ErrVersionConflict
func (e ErrVersionConflict) Is(target error) bool {
	t, ok := target.(ErrVersionConflict)
	if !ok {
		return false
	}
	if t.LedgerID == uuid.Nil {
		return true
	}
	return e.LedgerID == t.LedgerID
}
