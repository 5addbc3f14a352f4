package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/banking-transfer-service/internal/domain/transfer"
	"github.com/banking-transfer-service/internal/platform/ledgerapi"
	"github.com/banking-transfer-service/internal/saga"
	"github.com/banking-transfer-service/internal/transfer_service/service"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateTransfer(ctx context.Context, originAccountID uuid.UUID, destinationAccountNumber int64, amount decimal.Decimal, authToken string) (*transfer.Transfer, error) {
	args := m.Called(ctx, originAccountID, destinationAccountNumber, amount, authToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func newCompletedTransfer(t *testing.T) *transfer.Transfer {
	t.Helper()
	tr, err := transfer.NewTransfer(uuid.New(), uuid.New(), decimal.RequireFromString("250.00"))
	require.NoError(t, err)
	require.NoError(t, tr.MarkAsCompleted())
	return tr
}

func performCreateRequest(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, "/transfers", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token-abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTransferHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		expected := newCompletedTransfer(t)
		mockService.On("CreateTransfer", mock.Anything, expected.OriginAccountID, int64(1234), mock.MatchedBy(func(a decimal.Decimal) bool {
			return a.Equal(decimal.RequireFromString("250.00"))
		}), "token-abc").Return(expected, nil)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          expected.OriginAccountID.String(),
			DestinationAccountNumber: 1234,
			Amount:                   "250.00",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.Nil(t, response.Error)

		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var transferResp TransferResponse
		require.NoError(t, json.Unmarshal(data, &transferResp))
		assert.Equal(t, expected.ID.String(), transferResp.TransferID)
		assert.Equal(t, "250.00", transferResp.Amount)
		assert.Equal(t, string(transfer.StatusCompleted), transferResp.Status)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, map[string]interface{}{"amount": "10"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateTransfer")
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          uuid.NewString(),
			DestinationAccountNumber: 1234,
			Amount:                   "-5.00",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateTransfer")
	})

	t.Run("DestinationNotFound", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("CreateTransfer", mock.Anything, mock.Anything, int64(1234), mock.Anything, "token-abc").
			Return(nil, service.ErrDestinationAccountNotFound)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          uuid.NewString(),
			DestinationAccountNumber: 1234,
			Amount:                   "10.00",
		})

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("LedgerUnavailable", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		failedErr := &service.TransferFailedError{
			Outcome: saga.OutcomeFailedAtDebit,
			Message: "failed to debit origin account",
			Err:     &ledgerapi.TransientError{Err: errors.New("ledger down")},
		}
		mockService.On("CreateTransfer", mock.Anything, mock.Anything, int64(1234), mock.Anything, "token-abc").
			Return(nil, failedErr)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          uuid.NewString(),
			DestinationAccountNumber: 1234,
			Amount:                   "10.00",
		})

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "LEDGER_UNAVAILABLE")
	})

	t.Run("BusinessRejection", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		failedErr := &service.TransferFailedError{
			Outcome: saga.OutcomeFailedWithRollback,
			Message: "failed to credit destination account, transfer rolled back",
			Err:     ledgerapi.ErrInactiveAccount,
		}
		mockService.On("CreateTransfer", mock.Anything, mock.Anything, int64(1234), mock.Anything, "token-abc").
			Return(nil, failedErr)

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          uuid.NewString(),
			DestinationAccountNumber: 1234,
			Amount:                   "10.00",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "TRANSFER_FAILED")
	})

	t.Run("ManualReconciliation", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		mockService.On("CreateTransfer", mock.Anything, mock.Anything, int64(1234), mock.Anything, "token-abc").
			Return(nil, &service.ManualReconciliationError{Message: "compensation failed, manual reconciliation required"})

		router := setupTestRouter()
		router.POST("/transfers", handler.Create)

		rr := performCreateRequest(router, CreateTransferRequest{
			OriginAccountID:          uuid.NewString(),
			DestinationAccountNumber: 1234,
			Amount:                   "10.00",
		})

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "MANUAL_RECONCILIATION")
	})
}

func TestTransferHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		expected := newCompletedTransfer(t)
		mockService.On("GetTransfer", mock.Anything, expected.ID).Return(expected, nil)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/"+expected.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), expected.ID.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		id := uuid.New()
		mockService.On("GetTransfer", mock.Anything, id).Return(nil, nil)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetTransfer")
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(logger, mockService)

		id := uuid.New()
		mockService.On("GetTransfer", mock.Anything, id).Return(nil, errors.New("db error"))

		router := setupTestRouter()
		router.GET("/transfers/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/transfers/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
