package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/ledger_worker/service"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
)

// FeeAppliedHandler handles incoming fee applied messages from Kafka
type FeeAppliedHandler struct {
	feeDebitService service.FeeDebitService
	producer        producers.DeadLetterPublisher
	logger          *slog.Logger
}

// NewFeeAppliedHandler creates a new handler
func NewFeeAppliedHandler(
	logger *slog.Logger,
	feeDebitService service.FeeDebitService,
	producer producers.DeadLetterPublisher,
) *FeeAppliedHandler {
	return &FeeAppliedHandler{
		feeDebitService: feeDebitService,
		producer:        producer,
		logger:          logger,
	}
}

// HandleMessage processes Kafka messages
func (h *FeeAppliedHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event events.FeeApplied
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal fee applied event from Kafka message"
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

	h.logger.Info("Received fee applied event",
		"fee_id", event.FeeID.String(),
		"checking_account_id", event.CheckingAccountID.String(),
		"idempotency_key", event.IdempotencyKey,
	)

	if err := h.feeDebitService.ApplyFeeDebit(ctx, &event); err != nil {
		h.logger.Error("Failed to record fee debit",
			"fee_id", event.FeeID.String(),
			"error", err,
		)
		return fmt.Errorf("recording fee debit for fee %s failed: %w", event.FeeID.String(), err)
	}

	return nil // Success, commit offset
}
