package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/fee_worker/service"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
)

// TransferCompletedHandler handles incoming transfer completed messages from Kafka
type TransferCompletedHandler struct {
	feeApplier service.FeeApplierService
	producer   producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewTransferCompletedHandler creates a new handler
func NewTransferCompletedHandler(
	logger *slog.Logger,
	feeApplier service.FeeApplierService,
	producer producers.DeadLetterPublisher,
) *TransferCompletedHandler {
	return &TransferCompletedHandler{
		feeApplier: feeApplier,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMessage processes Kafka messages
func (h *TransferCompletedHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event events.TransferCompleted
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal transfer completed event from Kafka message"
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
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	h.logger.Info("Received transfer completed event",
		"transfer_id", event.TransferID.String(),
		"origin_account_id", event.OriginAccountID.String(),
		"idempotency_key", event.IdempotencyKey,
	)

	if err := h.feeApplier.ApplyFee(ctx, &event); err != nil {
		h.logger.Error("Failed to apply fee",
			"transfer_id", event.TransferID.String(),
			"error", err,
		)
		return fmt.Errorf("applying fee for transfer %s failed: %w", event.TransferID.String(), err)
	}

	return nil // Success, commit offset
}
