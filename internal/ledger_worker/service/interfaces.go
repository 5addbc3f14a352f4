package service

import (
	"context"

	"github.com/banking-transfer-service/internal/domain/events"
)

// FeeDebitService defines the interface for recording fee debits.
type FeeDebitService interface {
	ApplyFeeDebit(ctx context.Context, event *events.FeeApplied) error
}
