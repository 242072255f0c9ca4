package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

type ProcessingServiceImpl struct {
	validator       TransactionValidator
	ledgerRecorder  LedgerRecorder
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	validator TransactionValidator,
	ledgerRecorder LedgerRecorder,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		validator:       validator,
		ledgerRecorder:  ledgerRecorder,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessTransaction handles the core logic for recording a transaction
// request on its ledger. Business rejections are recorded as failures and
// acknowledged; transient errors are returned so the consumer retries.
func (s *ProcessingServiceImpl) ProcessTransaction(ctx context.Context, request *shared.LedgerTransactionRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing ledger transaction request",
		"transaction_id", request.TransactionID,
		"ledger_id", request.LedgerID.String(),
		"kind", string(request.Kind),
	)

	// 1. Validate the request
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Error("Transaction request validation failed",
			"transaction_id", request.TransactionID, "error", err)

		reason, detail := classifyFailure(err)
		if recordErr := s.failureRecorder.RecordFailure(ctx, request, reason, detail); recordErr != nil {
			logger.Error("Failed to record transaction failure",
				"transaction_id", request.TransactionID, "error", recordErr)
		}
		return nil // Acknowledge, the request can never succeed
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound{}) {
			logger.Warn("Target ledger does not exist",
				"transaction_id", request.TransactionID,
				"ledger_id", request.LedgerID.String(),
			)
			if recordErr := s.failureRecorder.RecordFailure(ctx, request,
				shared.FailureReasonLedgerNotFound, err.Error()); recordErr != nil {
				logger.Error("Failed to record transaction failure",
					"transaction_id", request.TransactionID, "error", recordErr)
			}
			return nil // Acknowledge, the ledger will not appear on retry
		}
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already recorded
	}

	// 3. Apply the request to the ledger aggregate
	l, err := s.ledgerRecorder.Record(ctx, request)
	if err != nil {
		if errors.Is(err, ledger.ErrVersionConflict{}) {
			// Another writer advanced the stream past the recorder's retries
			return fmt.Errorf("ledger busy for transaction %s: %w", request.TransactionID, err)
		}

		if isBusinessRejection(err) {
			reason, detail := classifyFailure(err)
			logger.Warn("Transaction request rejected by ledger",
				"transaction_id", request.TransactionID,
				"ledger_id", request.LedgerID.String(),
				"reason", string(reason),
			)
			if recordErr := s.failureRecorder.RecordFailure(ctx, request, reason, detail); recordErr != nil {
				logger.Error("Failed to record transaction failure",
					"transaction_id", request.TransactionID, "error", recordErr)
			}
			return nil // Acknowledge, retrying cannot fix a business rejection
		}

		return err // Transient, let Kafka retry
	}

	// 4. Store the downstream update notification
	if err := s.outboxManager.CreateUpdateEntry(ctx, request, l); err != nil {
		var duplicate outbox.ErrDuplicateMessage
		if errors.As(err, &duplicate) {
			logger.Info("Ledger update already staged for publishing",
				"transaction_id", request.TransactionID)
			return nil
		}
		// The ledger write committed; retry reaches the idempotency check and
		// only the outbox insert is repeated
		return err
	}

	logger.Info("Ledger transaction recorded",
		"transaction_id", request.TransactionID,
		"ledger_id", l.ID.String(),
		"balance", l.Balance.String(),
	)
	return nil
}

// isBusinessRejection reports whether the error is a deterministic rule
// violation that no retry can resolve
func isBusinessRejection(err error) bool {
	return errors.Is(err, ledger.ErrLedgerNotFound{}) ||
		errors.Is(err, ledger.ErrLedgerClosed) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrArrearsPeriodInFuture) ||
		errors.Is(err, ledger.ErrArrearsPeriodRequired) ||
		errors.Is(err, ledger.ErrUnknownTransactionType) ||
		errors.Is(err, ledger.ErrUnknownPaymentSubtype) ||
		errors.Is(err, ledger.ErrUnknownArrearsType) ||
		errors.Is(err, shared.ErrInvalidRequestKind)
}

// classifyFailure maps an error onto the failure taxonomy kept for audit
func classifyFailure(err error) (shared.FailureReason, string) {
	switch {
	case errors.Is(err, ledger.ErrLedgerNotFound{}):
		return shared.FailureReasonLedgerNotFound, err.Error()
	case errors.Is(err, ledger.ErrLedgerClosed):
		return shared.FailureReasonLedgerClosed, err.Error()
	case errors.Is(err, ledger.ErrInvalidAmount):
		return shared.FailureReasonInvalidAmount, err.Error()
	case errors.Is(err, ledger.ErrArrearsPeriodInFuture),
		errors.Is(err, ledger.ErrArrearsPeriodRequired):
		return shared.FailureReasonArrearsPeriodInFuture, err.Error()
	case errors.Is(err, ledger.ErrVersionConflict{}):
		return shared.FailureReasonVersionConflict, err.Error()
	default:
		return shared.FailureReasonUnknownError, err.Error()
	}
}
