package components

import (
	"context"
	"log/slog"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
)

type TransactionValidatorImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewTransactionValidator(ledgerRepo ledger.Repository, logger *slog.Logger) service.TransactionValidator {
	return &TransactionValidatorImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Validate checks the static validity of a transaction request. Rules that
// depend on ledger state are left to the aggregate.
func (v *TransactionValidatorImpl) Validate(ctx context.Context, request *shared.LedgerTransactionRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if err := request.Validate(); err != nil {
		logger.Error("Malformed transaction request",
			"transaction_id", request.TransactionID, "kind", string(request.Kind), "error", err)
		return err
	}

	switch request.Kind {
	case shared.RequestKindPayment:
		if _, err := ledger.TransactionTypeForSubtype(request.PaymentSubtype); err != nil {
			logger.Error("Unknown payment subtype",
				"transaction_id", request.TransactionID, "subtype", string(request.PaymentSubtype))
			return err
		}
	case shared.RequestKindArrears:
		if _, err := ledger.TransactionTypeForArrears(request.ArrearsType); err != nil {
			logger.Error("Unknown arrears type",
				"transaction_id", request.TransactionID, "arrears_type", string(request.ArrearsType))
			return err
		}
		if request.PeriodStart == nil || request.PeriodEnd == nil {
			logger.Error("Arrears request without period",
				"transaction_id", request.TransactionID)
			return ledger.ErrArrearsPeriodRequired
		}
	}

	return nil
}

// CheckIdempotency reports whether the transaction was already applied to the
// target ledger. The ledger's event stream is the source of truth, so a
// retried message after a committed write is detected here.
func (v *TransactionValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.LedgerTransactionRequest) (bool, error) {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	l, err := v.ledgerRepo.FindByID(ctx, request.LedgerID)
	if err != nil {
		// Missing ledgers flow through to the recorder's business rejection
		return false, err
	}

	for _, entry := range l.Entries {
		if entry.TransactionID == request.TransactionID {
			logger.Info("Transaction already recorded on ledger (idempotency)",
				"transaction_id", request.TransactionID,
				"ledger_id", request.LedgerID.String(),
			)
			return true, nil
		}
	}

	return false, nil
}
