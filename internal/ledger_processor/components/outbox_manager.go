package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateUpdateEntry stages a ledger update notification in the outbox table.
// The unique transaction id constraint surfaces redelivered messages as
// ErrDuplicateMessage, which callers treat as already staged.
func (m *OutboxManagerImpl) CreateUpdateEntry(ctx context.Context, request *shared.LedgerTransactionRequest, l *ledger.FinancialLedger) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	update := &outbox.LedgerUpdate{
		LedgerID:      l.ID,
		ClientID:      l.ClientID,
		TransactionID: request.TransactionID,
		EventType:     ledger.EventTypeTransactionRecorded,
		Amount:        request.Amount,
		TotalDebits:   l.TotalDebits,
		TotalCredits:  l.TotalCredits,
		Balance:       l.Balance,
		CorrelationID: request.CorrelationID,
		OccurredAt:    time.Now().UTC(),
	}

	message, err := outbox.NewMessage(update)
	if err != nil {
		logger.Error("Failed to build outbox message payload",
			"transaction_id", request.TransactionID,
			"error", err,
		)
		return fmt.Errorf("failed to build outbox payload for transaction %s: %w", request.TransactionID, err)
	}

	if err := m.outboxRepo.Create(ctx, message); err != nil {
		return err
	}

	logger.Info("Ledger update staged in outbox",
		"transaction_id", request.TransactionID,
		"outbox_id", message.ID,
	)
	return nil
}
