package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/config"
	"github.com/segmentio/kafka-go"
)

// EventProducer publishes domain events to a single Kafka topic. Writes are
// synchronous with full acks: both the outbox poller and the fee worker need
// to know the broker accepted an event before marking their own state.
type EventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEventProducer creates a producer for the given topic and ensures the topic exists
func NewEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string) (*EventProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for event producer: %w", topic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write event messages", "topic", topic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote event messages", "topic", topic, "count", len(messages))
			}
		},
	}

	return &EventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}, nil
}

func (p *EventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event value for topic %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EventProducer) Close() error {
	p.logger.Info("Closing event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
