package service

import (
	"context"

	"github.com/banking-transfer-service/internal/domain/events"
)

// FeeApplierService defines the interface for applying transfer fees.
type FeeApplierService interface {
	ApplyFee(ctx context.Context, event *events.TransferCompleted) error
}
