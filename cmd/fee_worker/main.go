package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banking-transfer-service/internal/config"
	"github.com/banking-transfer-service/internal/data/postgres"
	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/fee_worker/consumer"
	"github.com/banking-transfer-service/internal/fee_worker/service"
	"github.com/banking-transfer-service/internal/logger"
	"github.com/banking-transfer-service/internal/platform/messaging/consumers"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
	"github.com/banking-transfer-service/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("fee_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Fee Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	feeAmount, err := cfg.Fee.FeeAmount()
	if err != nil {
		log.Error("Invalid transfer fee amount", "error", err)
		os.Exit(1)
	}

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	feeRepo := postgres.NewFeeRepository(log, postgresDB)
	processedStore := postgres.NewProcessedEventRepository(log, postgresDB)

	// Initialize Kafka consumer for the transfer completed topic
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.TransferCompletedTopic, cfg.Kafka.FeeConsumerGroup)

	// Initialize Kafka producer for the fee applied topic
	feeAppliedProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.FeeAppliedTopic)
	if err != nil {
		log.Error("Failed to initialize fee applied Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize fee applier behind a bounded worker pool
	baseApplier := service.NewFeeApplier(log, feeRepo, processedStore, feeAppliedProducer, feeAmount)
	feeApplier, err := service.NewWorkerPoolFeeApplier(
		baseApplier,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize event handler
	eventHandler := consumer.NewTransferCompletedHandler(log, feeApplier, dlqProducer)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", events.TopicTransferCompleted,
			"group", cfg.Kafka.FeeConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.TransferCompletedTopic, cfg.Kafka.FeeConsumerGroup, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	feeApplier.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if err = feeAppliedProducer.Close(); err != nil {
		log.Error("Error closing fee applied Kafka producer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Fee Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Fee Worker shutdown completed with errors")
	} else {
		log.Info("Fee Worker shutdown completed successfully")
	}
}
