package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/banking-transfer-service/internal/config"
	"github.com/banking-transfer-service/internal/domain/idempotency"
)

// IdempotencyKeyHeader is the caller-supplied deduplication key for mutating requests
const IdempotencyKeyHeader = "Idempotency-Key"

// bodyCaptureWriter duplicates the response body so a successful response can
// be cached against the idempotency key after the handler runs.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes mutating requests bearing an Idempotency-Key header
// first-write-wins. The first request to claim a key executes the handler;
// on a 2xx outcome its (status, body) pair is cached and replayed verbatim
// to every later request with the same key. A non-2xx outcome releases the
// claim so the caller may retry. Concurrent duplicates lose the claim and
// wait briefly for the winner's cached response, giving up with 409 if the
// winner is still running.
//
// Requests without the header pass through untouched.
func Idempotency(logger *slog.Logger, store idempotency.Store, cfg *config.IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		won, existing, err := store.Reserve(ctx, key)
		if err != nil {
			logger.Error("Failed to reserve idempotency key", "key", key, "error", err)
			abortWithIdempotencyError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
			return
		}

		if !won {
			if existing != nil && existing.Status == idempotency.StatusCompleted {
				replayCachedResponse(c, existing)
				return
			}
			waitForWinner(c, logger, store, cfg, key)
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// The client may have disconnected while the handler ran; the cache
		// update must still happen so its retry sees the stored outcome.
		finishCtx := context.WithoutCancel(ctx)
		status := writer.Status()
		if status >= 200 && status < 300 {
			if err := store.Complete(finishCtx, key, status, writer.body.Bytes()); err != nil {
				logger.Error("Failed to store idempotent response", "key", key, "error", err)
			}
			return
		}

		if err := store.Release(finishCtx, key); err != nil {
			logger.Error("Failed to release idempotency key", "key", key, "error", err)
		}
	}
}

// waitForWinner polls for the winner's cached response until the configured
// timeout, then reports a conflict. The winner may legitimately take longer
// than we are willing to hold this request open.
func waitForWinner(c *gin.Context, logger *slog.Logger, store idempotency.Store, cfg *config.IdempotencyConfig, key string) {
	ctx := c.Request.Context()
	deadline := time.Now().Add(cfg.WaitTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			abortWithIdempotencyError(c, http.StatusConflict, "CONFLICT", "A request with this idempotency key is already in progress")
			return
		case <-time.After(cfg.PollInterval):
		}

		record, err := store.Get(ctx, key)
		if err != nil {
			logger.Error("Failed to poll idempotency key", "key", key, "error", err)
			abortWithIdempotencyError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
			return
		}
		if record != nil && record.Status == idempotency.StatusCompleted {
			replayCachedResponse(c, record)
			return
		}
	}

	abortWithIdempotencyError(c, http.StatusConflict, "CONFLICT", "A request with this idempotency key is already in progress")
}

func replayCachedResponse(c *gin.Context, record *idempotency.Record) {
	c.Data(record.ResponseStatus, "application/json", record.ResponseBody)
	c.Abort()
}

func abortWithIdempotencyError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
