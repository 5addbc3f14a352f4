package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/outbox"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
)

// EventPublisher publishes outbox messages to the event bus
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher implements EventPublisher on top of the transfer
// completed topic producer. The Kafka key is the event's idempotency key so
// redeliveries of the same transfer land on the same partition.
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewKafkaEventPublisher creates a new publisher
func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent pushes one outbox message to Kafka and marks it processed.
// A crash between the write and the mark republishes the event; consumers
// deduplicate on the embedded idempotency key.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal event from outbox payload",
			"outbox_id", message.ID, "transfer_id", message.TransferID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, message.IdempotencyKey, event); err != nil {
		return fmt.Errorf("failed to publish transfer completed event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transfer_id", message.TransferID, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransferID, message.ID, err)
	}

	return nil
}
