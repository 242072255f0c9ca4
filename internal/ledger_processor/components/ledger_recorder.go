package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
)

// maxSaveAttempts bounds optimistic concurrency retries before the message
// goes back to Kafka
const maxSaveAttempts = 3

// LedgerRecorderImpl loads the target ledger, applies the requested
// transaction, and saves the new events
type LedgerRecorderImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewLedgerRecorder creates a new LedgerRecorderImpl
func NewLedgerRecorder(ledgerRepo ledger.Repository, logger *slog.Logger) service.LedgerRecorder {
	return &LedgerRecorderImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Record applies the request to its ledger. Version conflicts reload the
// aggregate and reapply; the double-entry invariants make the replayed
// operation deterministic.
func (r *LedgerRecorderImpl) Record(ctx context.Context, request *shared.LedgerTransactionRequest) (*ledger.FinancialLedger, error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	var lastErr error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		l, err := r.ledgerRepo.FindByID(ctx, request.LedgerID)
		if err != nil {
			return nil, err
		}

		if err := r.apply(l, request); err != nil {
			return nil, err
		}

		if err := r.ledgerRepo.Save(ctx, l); err != nil {
			if errors.Is(err, ledger.ErrVersionConflict{}) {
				logger.Warn("Version conflict saving ledger, retrying",
					"transaction_id", request.TransactionID,
					"ledger_id", request.LedgerID.String(),
					"attempt", attempt,
				)
				lastErr = err
				continue
			}
			return nil, err
		}

		logger.Info("Transaction applied to ledger",
			"transaction_id", request.TransactionID,
			"ledger_id", l.ID.String(),
			"kind", string(request.Kind),
			"amount", request.Amount.String(),
			"version", l.Version,
		)
		return l, nil
	}

	return nil, fmt.Errorf("exhausted %d save attempts for transaction %s: %w",
		maxSaveAttempts, request.TransactionID, lastErr)
}

func (r *LedgerRecorderImpl) apply(l *ledger.FinancialLedger, request *shared.LedgerTransactionRequest) error {
	switch request.Kind {
	case shared.RequestKindPayment:
		return l.RecordPayment(request.TransactionID, request.AssistanceID, request.Amount,
			request.FundingSourceCode, request.HudCategoryCode, request.PaymentSubtype,
			request.PayeeID, request.PayeeName, request.PaymentDate,
			request.PeriodStart, request.PeriodEnd, request.RecordedBy)
	case shared.RequestKindDeposit:
		return l.RecordDeposit(request.TransactionID, request.Amount,
			request.FundingSourceCode, request.DepositSource, request.PaymentDate, request.RecordedBy)
	case shared.RequestKindArrears:
		return l.RecordArrears(request.TransactionID, request.Amount, request.ArrearsType,
			request.PayeeID, request.PayeeName, request.PeriodStart, request.PeriodEnd, request.RecordedBy)
	default:
		return shared.ErrInvalidRequestKind
	}
}
