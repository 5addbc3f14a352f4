// Package idempotency defines the two deduplication guards used at the
// service boundaries. The request-level Store caches whole HTTP responses
// keyed by a caller-supplied Idempotency-Key; the event-level ProcessedStore
// marks consumed event keys so redelivered events become safe no-ops.
//
// Both guards give at-least-once, not exactly-once, semantics: a crash
// between an effect and its mark causes a replay, which is only safe because
// every downstream effect is protected by its own derived key.
package idempotency

import (
	"context"
	"time"
)

// RecordStatus tracks the lifecycle of a request-level reservation
type RecordStatus string

const (
	// StatusInProgress means a request holding the key is still executing
	StatusInProgress RecordStatus = "IN_PROGRESS"
	// StatusCompleted means the response pair is cached and final
	StatusCompleted RecordStatus = "COMPLETED"
)

// Record is the cached outcome of the first successful request for a key.
// First write wins; records are never overwritten.
type Record struct {
	Key            string       `json:"key"`
	Status         RecordStatus `json:"status"`
	ResponseStatus int          `json:"response_status"`
	ResponseBody   []byte       `json:"response_body"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// Store is the request-level guard. Reserve is the single point of mutual
// exclusion in the system: it must perform an atomic insert-if-absent on the
// key so exactly one of any set of concurrent duplicates wins.
type Store interface {
	// Reserve attempts to claim the key. It returns (true, nil, nil) when the
	// caller won the claim and must execute the effect, or (false, existing,
	// nil) when another request holds or completed the key.
	Reserve(ctx context.Context, key string) (bool, *Record, error)

	// Complete stores the (status, body) pair for a successfully executed
	// request. Only the reservation winner calls it.
	Complete(ctx context.Context, key string, responseStatus int, responseBody []byte) error

	// Release drops an unfinished reservation after a non-2xx outcome so a
	// later retry can execute the effect again.
	Release(ctx context.Context, key string) error

	// Get returns the record for the key, or nil when absent.
	Get(ctx context.Context, key string) (*Record, error)
}

// ProcessedStore is the event-level guard. The consumer applies the effect
// first and marks the key after, so WasProcessed returning false can mean
// "never ran" or "ran but crashed before the mark" - callers must keep the
// effect itself idempotent downstream.
type ProcessedStore interface {
	WasProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string) error
}
