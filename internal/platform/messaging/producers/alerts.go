package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/haven-hmis/haven-ledger/internal/config"
)

// AlertsProducer publishes financial alert notifications raised by the
// diagnostics poller, keyed by ledger ID so alerts for one ledger stay ordered
type AlertsProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewAlertsProducer creates the producer and ensures the topic exists
func NewAlertsProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AlertsProducer, error) {
	if cfg.AlertsTopic == "" {
		return nil, fmt.Errorf("kafka alerts topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for alerts producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.AlertsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure alerts topic %s exists: %w", cfg.AlertsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AlertsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &AlertsProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AlertsTopic,
	}, nil
}

func (p *AlertsProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish financial alert",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish alert to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published financial alert",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *AlertsProducer) Close() error {
	p.logger.Info("Closing financial alerts producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close alerts kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
