package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/haven-hmis/haven-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one transaction request message. Key is the
// transaction ID the gateway published under.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer feeds transaction request messages to a handler
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaConsumer reads the transaction request topic as part of the processor
// consumer group. Offsets commit only after the handler returns nil, so a
// message that fails transiently is redelivered.
type KafkaConsumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	topic   string
	groupID string
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger:  logger,
		topic:   cfg.TransactionTopic,
		groupID: cfg.ConsumerGroup,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.TransactionTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts the fetch loop in a goroutine. It runs until ctx is
// canceled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("transaction request consumer listening",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("transaction request consumer stopping",
					"topic", c.topic,
					"group_id", c.groupID,
				)
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error("Failed to fetch transaction request",
						"topic", c.topic,
						"group_id", c.groupID,
						"error", err,
					)
					time.Sleep(time.Second)
					continue
				}

				c.logger.Debug("Received transaction request",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"transaction_id", string(msg.Key),
				)

				if err := handler(ctx, msg.Key, msg.Value); err != nil {
					c.logger.Error("Transaction request not processed, offset held for redelivery",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"transaction_id", string(msg.Key),
						"error", err,
					)
					continue
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Error("Failed to commit offset after processing",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"transaction_id", string(msg.Key),
						"error", err,
					)
				}
			}
		}
	}()

	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
