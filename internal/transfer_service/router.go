package transfer_service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/banking-transfer-service/internal/config"
	"github.com/banking-transfer-service/internal/domain/idempotency"
	"github.com/banking-transfer-service/internal/transfer_service/handler"
	"github.com/banking-transfer-service/internal/transfer_service/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	cfg *config.Config,
	idempotencyStore idempotency.Store,
	transferHandler *handler.TransferHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		transfers := v1.Group("/transfers")
		{
			transfers.POST("", middleware.Idempotency(logger, idempotencyStore, &cfg.Idempotency), transferHandler.Create)
			transfers.GET("/:id", transferHandler.GetByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
