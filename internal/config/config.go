// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// the HTTP server, the ledger client, Kafka topics, and operational parameters.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, ledger
// client, message queues) and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	Ledger      LedgerConfig
	Fee         FeeConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Idempotency IdempotencyConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers                string
	TransferCompletedTopic string
	FeeAppliedTopic        string
	NumPartitions          int // Number of partitions for topics
	ReplicationFactor      int // Replication factor for topics
	FeeConsumerGroup       string
	LedgerConsumerGroup    string
	MinBytes               int
	MaxBytes               int
	MaxWait                time.Duration
	StartOffset            int64
	DLQTopic               string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// LedgerConfig contains settings for the client of the external checking
// account ledger service
type LedgerConfig struct {
	BaseURL          string
	RequestTimeout   time.Duration // Fixed per-call deadline
	RetryMaxAttempts int           // Attempts including the first call
	RetryBaseDelay   time.Duration // Backoff is baseDelay * 2^attempt plus jitter
	RetryMaxJitter   time.Duration
	BreakerThreshold uint32        // Consecutive transient failures before the circuit opens
	BreakerOpenFor   time.Duration // How long the circuit stays open before a probe call
}

// FeeConfig contains transfer fee settings
type FeeConfig struct {
	TransferFeeAmount string // Decimal string, validated at startup
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// IdempotencyConfig controls how long a duplicate request waits for the
// in-flight original to finish before giving up with a conflict.
type IdempotencyConfig struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// FeeAmount parses the configured transfer fee. validate guarantees the value
// parses and is non-negative, so callers may treat an error here as a bug.
func (c *FeeConfig) FeeAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.TransferFeeAmount)
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.TransferCompletedTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRANSFER_COMPLETED_TOPIC is required")
	}
	if c.Kafka.FeeAppliedTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_FEE_APPLIED_TOPIC is required")
	}
	if c.Kafka.FeeConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_FEE_CONSUMER_GROUP is required")
	}
	if c.Kafka.LedgerConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Ledger client config
	if c.Ledger.BaseURL == "" {
		validationErrors = append(validationErrors, "LEDGER_BASE_URL is required")
	}
	if c.Ledger.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Ledger.RetryMaxAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RETRY_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Ledger.RetryBaseDelay <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RETRY_BASE_DELAY must be greater than 0")
	}
	if c.Ledger.BreakerThreshold == 0 {
		validationErrors = append(validationErrors, "LEDGER_BREAKER_THRESHOLD must be greater than 0")
	}
	if c.Ledger.BreakerOpenFor <= 0 {
		validationErrors = append(validationErrors, "LEDGER_BREAKER_OPEN_FOR must be greater than 0")
	}

	// Validate Fee config. A misconfigured or negative fee must fail fast.
	if fee, err := c.Fee.FeeAmount(); err != nil {
		validationErrors = append(validationErrors, "FEE_TRANSFER_AMOUNT must be a valid decimal")
	} else if fee.IsNegative() {
		validationErrors = append(validationErrors, "FEE_TRANSFER_AMOUNT must not be negative")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Idempotency config
	if c.Idempotency.WaitTimeout <= 0 {
		validationErrors = append(validationErrors, "IDEMPOTENCY_WAIT_TIMEOUT must be greater than 0")
	}
	if c.Idempotency.PollInterval <= 0 {
		validationErrors = append(validationErrors, "IDEMPOTENCY_POLL_INTERVAL must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
