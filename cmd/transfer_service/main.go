package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banking-transfer-service/internal/config"
	"github.com/banking-transfer-service/internal/data/postgres"
	"github.com/banking-transfer-service/internal/logger"
	"github.com/banking-transfer-service/internal/platform/ledgerapi"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
	"github.com/banking-transfer-service/internal/platform/persistence"
	"github.com/banking-transfer-service/internal/saga"
	"github.com/banking-transfer-service/internal/transfer_service"
	"github.com/banking-transfer-service/internal/transfer_service/outbox_poller"
	"github.com/banking-transfer-service/internal/transfer_service/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("transfer_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Transfer Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the transfer completed topic
	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.TransferCompletedTopic)
	if err != nil {
		log.Error("Failed to initialize transfer completed Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	idempotencyStore := postgres.NewIdempotencyRepository(log, postgresDB)

	// Build the ledger client stack: HTTP inside retry inside breaker, so a
	// whole retried burst counts as one failure against the circuit.
	var ledgerClient ledgerapi.Client = ledgerapi.NewClient(log, &cfg.Ledger)
	ledgerClient = ledgerapi.NewRetryClient(ledgerClient, log, &cfg.Ledger)
	ledgerClient = ledgerapi.NewBreakerClient(ledgerClient, log, &cfg.Ledger)

	// Initialize saga orchestrator and transfer service
	orchestrator := saga.NewTransferOrchestrator(ledgerClient, log)
	transferService := service.NewTransferService(log, ledgerClient, orchestrator, transferRepo, outboxRepo, postgresDB)

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewKafkaEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Initialize REST server
	server := transfer_service.NewServer(log, cfg, transferService, idempotencyStore)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new sagas start
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to stop
	wg.Wait()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
