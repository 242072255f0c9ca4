package service

import (
	"context"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// ProcessingService defines the interface for processing ledger transaction requests.
type ProcessingService interface {
	ProcessTransaction(ctx context.Context, request *shared.LedgerTransactionRequest) error
}

// TransactionValidator validates transaction requests before processing
type TransactionValidator interface {
	Validate(ctx context.Context, request *shared.LedgerTransactionRequest) error
	CheckIdempotency(ctx context.Context, request *shared.LedgerTransactionRequest) (bool, error)
}

// LedgerRecorder applies a validated request to its target ledger aggregate
type LedgerRecorder interface {
	Record(ctx context.Context, request *shared.LedgerTransactionRequest) (*ledger.FinancialLedger, error)
}

// OutboxManager stores a ledger update notification for reliable publishing
type OutboxManager interface {
	CreateUpdateEntry(ctx context.Context, request *shared.LedgerTransactionRequest, l *ledger.FinancialLedger) error
}

// FailureRecorder handles recording failed transaction requests
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.LedgerTransactionRequest, reason shared.FailureReason, detail string) error
}
