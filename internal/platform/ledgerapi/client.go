// Package ledgerapi provides the resilient client for the external checking
// account ledger service. The HTTP client maps responses onto the error
// taxonomy; decorators layer retry (transient-only, exponential backoff with
// jitter) and a circuit breaker on top. Compose as
// NewClient -> NewRetryClient -> NewBreakerClient.
package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/banking-transfer-service/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the ledger movement direction
type MovementType string

const (
	MovementCredit MovementType = "C"
	MovementDebit  MovementType = "D"
)

// Client defines the operations the transfer saga needs from the ledger.
// A nil accountNumber targets the account identified by the auth token.
type Client interface {
	CreateMovement(ctx context.Context, accountNumber *int64, amount decimal.Decimal, movementType MovementType, authToken string, idempotencyKey string) error
	ResolveAccountID(ctx context.Context, accountNumber int64, authToken string) (uuid.UUID, error)
}

// HTTPClient implements Client against the ledger's REST API
type HTTPClient struct {
	baseURL        string
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient creates the raw HTTP ledger client. Every call carries a fixed
// deadline from config; exceeding it counts as transient.
func NewClient(logger *slog.Logger, cfg *config.LedgerConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:        cfg.BaseURL,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

type createMovementRequest struct {
	AccountNumber *int64          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Type          MovementType    `json:"type"`
}

type ledgerErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// CreateMovement posts a credit or debit movement. The Idempotency-Key header
// lets the ledger deduplicate replays of the same saga step.
func (c *HTTPClient) CreateMovement(ctx context.Context, accountNumber *int64, amount decimal.Decimal, movementType MovementType, authToken string, idempotencyKey string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := json.Marshal(createMovementRequest{
		AccountNumber: accountNumber,
		Amount:        amount,
		Type:          movementType,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal movement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/movements", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create movement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TransientError{Err: fmt.Errorf("movement request deadline exceeded: %w", err)}
		}
		return &TransientError{Err: fmt.Errorf("movement request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("Ledger movement created",
			"type", string(movementType),
			"idempotency_key", idempotencyKey,
		)
		return nil
	}

	return c.mapErrorResponse(resp)
}

// ResolveAccountID looks up an account id by its number. A 404 maps to
// ErrInvalidAccount.
func (c *HTTPClient) ResolveAccountID(ctx context.Context, accountNumber int64, authToken string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/accounts/by-number/%d", c.baseURL, accountNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create account lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return uuid.Nil, &TransientError{Err: fmt.Errorf("account lookup deadline exceeded: %w", err)}
		}
		return uuid.Nil, &TransientError{Err: fmt.Errorf("account lookup failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return uuid.Nil, fmt.Errorf("%w: account number %d", ErrInvalidAccount, accountNumber)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uuid.Nil, c.mapErrorResponse(resp)
	}

	var payload struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode account lookup response: %w", err)
	}
	if payload.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: account number %d", ErrInvalidAccount, accountNumber)
	}

	return payload.ID, nil
}

// mapErrorResponse translates a non-2xx ledger response into the error
// taxonomy: 5xx is transient, known 4xx codes become business errors.
func (c *HTTPClient) mapErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return &TransientError{Err: fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(body))}
	}

	var errResp ledgerErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch errResp.ErrorCode {
		case "INVALID_ACCOUNT":
			return fmt.Errorf("%w: %s", ErrInvalidAccount, errResp.Message)
		case "INACTIVE_ACCOUNT":
			return fmt.Errorf("%w: %s", ErrInactiveAccount, errResp.Message)
		case "INVALID_VALUE":
			return fmt.Errorf("%w: %s", ErrInvalidMovementValue, errResp.Message)
		case "INVALID_TYPE":
			return fmt.Errorf("%w: %s", ErrInvalidMovementType, errResp.Message)
		}
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.ErrorCode, Message: errResp.Message}
	}

	return &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: string(body)}
}
