package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/haven-hmis/haven-ledger/internal/config"
)

// LedgerUpdateProducer publishes committed ledger updates drained from the
// transactional outbox. Writes are synchronous because the poller marks the
// outbox row processed only after a confirmed publish.
type LedgerUpdateProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewLedgerUpdateProducer creates the producer and ensures the topic exists
func NewLedgerUpdateProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LedgerUpdateProducer, error) {
	if cfg.LedgerUpdateTopic == "" {
		return nil, fmt.Errorf("kafka ledger update topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for ledger update producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.LedgerUpdateTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure ledger update topic %s exists: %w", cfg.LedgerUpdateTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.LedgerUpdateTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &LedgerUpdateProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LedgerUpdateTopic,
	}, nil
}

func (p *LedgerUpdateProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger update message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger update",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish ledger update to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger update",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *LedgerUpdateProducer) Close() error {
	p.logger.Info("Closing ledger update producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close ledger update kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
