package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/producers"
)

// UpdatePublisher publishes staged ledger updates to downstream consumers
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, message *outbox.Message) error
}

// UpdatePublisherImpl publishes outbox messages to the ledger updates topic
// and marks them processed only after the broker confirms the write
type UpdatePublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewUpdatePublisher creates a new publisher
func NewUpdatePublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) UpdatePublisher {
	return &UpdatePublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishUpdate sends one staged ledger update to Kafka. Payloads that cannot
// be decoded are parked as FAILED_TO_PUBLISH instead of being retried.
func (p *UpdatePublisherImpl) PublishUpdate(ctx context.Context, message *outbox.Message) error {
	update, err := message.GetLedgerUpdate()
	if err != nil {
		p.logger.Error("Failed to decode ledger update from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to park undecodable outbox message",
				"outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if update.CorrelationID != "" {
		logger = p.logger.With("correlation_id", update.CorrelationID)
	}

	logger.Info("Publishing ledger update",
		"outbox_id", message.ID,
		"transaction_id", message.TransactionID,
		"ledger_id", update.LedgerID.String(),
	)

	// Key by ledger so downstream consumers see updates for one ledger in order
	if err := p.producer.Publish(ctx, update.LedgerID.String(), update); err != nil {
		return fmt.Errorf("failed to publish ledger update for transaction %s: %w", message.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Published ledger update but failed to mark outbox message PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("publish for %s OK, but failed to mark outbox %d as PROCESSED: %w",
			message.TransactionID, message.ID, err)
	}

	logger.Info("Ledger update published and outbox message marked PROCESSED",
		"outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}
