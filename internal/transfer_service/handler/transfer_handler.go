package handler

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banking-transfer-service/internal/domain/transfer"
	"github.com/banking-transfer-service/internal/platform/ledgerapi"
	"github.com/banking-transfer-service/internal/transfer_service/service"
)

// TransferHandler handles HTTP requests for transfer operations
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create runs a money transfer between two accounts
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	originAccountID, err := uuid.Parse(req.OriginAccountID)
	if err != nil {
		h.logger.Error("Invalid origin account ID", "origin_account_id", req.OriginAccountID, "error", err)
		RespondBadRequest(c, "Invalid origin account ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}
	if !amount.IsPositive() {
		RespondBadRequest(c, "Amount must be positive")
		return
	}

	authToken := bearerToken(c)

	t, err := h.transferService.CreateTransfer(
		c.Request.Context(),
		originAccountID,
		req.DestinationAccountNumber,
		amount,
		authToken,
	)
	if err != nil {
		h.respondTransferError(c, err)
		return
	}

	RespondCreated(c, mapTransferToResponse(t))
}

// GetByID retrieves transfer details by its ID, returns 404 if not found
func (h *TransferHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transfer ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transfer ID")
		return
	}

	t, err := h.transferService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get transfer", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if t == nil {
		RespondNotFound(c, "Transfer not found")
		return
	}

	RespondOK(c, mapTransferToResponse(t))
}

// respondTransferError maps service errors to HTTP responses. Uncompensated
// failures and ledger outages get 503 so clients know to back off; everything
// the caller can fix gets a 4xx.
func (h *TransferHandler) respondTransferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDestinationAccountNotFound):
		RespondNotFound(c, "Destination account not found")
	case errors.Is(err, transfer.ErrSameAccount),
		errors.Is(err, transfer.ErrInvalidAmount),
		errors.Is(err, transfer.ErrInvalidOriginAccount),
		errors.Is(err, transfer.ErrInvalidDestinationAccount):
		RespondBadRequest(c, err.Error())
	default:
		h.respondSagaError(c, err)
	}
}

func (h *TransferHandler) respondSagaError(c *gin.Context, err error) {
	var reconciliationErr *service.ManualReconciliationError
	if errors.As(err, &reconciliationErr) {
		h.logger.Error("Transfer requires manual reconciliation", "error", err)
		RespondServiceUnavailable(c, "MANUAL_RECONCILIATION", reconciliationErr.Message)
		return
	}

	var failedErr *service.TransferFailedError
	if errors.As(err, &failedErr) {
		if ledgerapi.IsTransient(failedErr.Err) {
			RespondServiceUnavailable(c, "LEDGER_UNAVAILABLE", failedErr.Message)
			return
		}
		RespondUnprocessable(c, "TRANSFER_FAILED", failedErr.Message)
		return
	}

	h.logger.Error("Failed to create transfer", "error", err)
	RespondInternalError(c)
}

// bearerToken extracts the raw token from the Authorization header. The token
// is opaque here; it is forwarded to the ledger untouched.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

// mapTransferToResponse maps a transfer record to a response DTO
func mapTransferToResponse(t *transfer.Transfer) TransferResponse {
	return TransferResponse{
		TransferID:           t.ID.String(),
		OriginAccountID:      t.OriginAccountID.String(),
		DestinationAccountID: t.DestinationAccountID.String(),
		Amount:               t.Amount.String(),
		MovementDate:         t.MovementDate.Format(time.RFC3339),
		Status:               string(t.Status),
	}
}
