package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/producers"
)

// TransactionEventHandler handles incoming ledger transaction request messages from Kafka
type TransactionEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewTransactionEventHandler creates a new handler
func NewTransactionEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.LedgerTransactionRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal ledger transaction request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ",
					"message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received ledger transaction request for processing",
		"transaction_id", request.TransactionID,
		"ledger_id", request.LedgerID.String(),
		"kind", string(request.Kind),
		"amount", request.Amount.String(),
	)

	if err := h.processingService.ProcessTransaction(ctx, &request); err != nil {
		logger.Error("Failed to process ledger transaction request",
			"transaction_id", request.TransactionID,
			"ledger_id", request.LedgerID.String(),
			"error", err,
		)
		return fmt.Errorf("processing transaction %s failed: %w", request.TransactionID, err)
	}

	logger.Info("Successfully processed ledger transaction request", "transaction_id", request.TransactionID)
	return nil // Success, commit offset
}
