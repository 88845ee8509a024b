package storage

import (
	"time"

	"github.com/sceylan/pyfinder-go/pkg/types"
)

// Store defines the durable record of every ScheduledQuery row, keyed by
// (EventID, Service, DelayMinutes). Implementations must serialize writes
// so that FetchDue followed by a caller's CAS transition (PENDING ->
// PROCESSING) cannot race with a concurrent FetchDue handing the same row
// to a second worker.
type Store interface {
	// Add inserts a new row. If a row already exists for key, Add returns
	// a *perrors.DuplicateKeyError and leaves the existing row untouched.
	Add(row *types.ScheduledQuery) error

	// Get returns the row for key, or an error if it does not exist.
	Get(key types.Key) (*types.ScheduledQuery, error)

	// ListByEvent returns every row for eventID, in no particular order.
	ListByEvent(eventID string) ([]*types.ScheduledQuery, error)

	// FetchDue returns PENDING rows whose NextQueryTime is at or before
	// now, ordered by Priority descending then NextQueryTime ascending.
	// If service is non-empty, results are restricted to that service.
	FetchDue(now time.Time, service string) ([]*types.ScheduledQuery, error)

	// UpdateFields applies fn to the row for key inside a single write
	// transaction and persists the result. fn must not retain row beyond
	// its call.
	UpdateFields(key types.Key, fn func(row *types.ScheduledQuery) error) error

	// MarkCompleted transitions key to COMPLETED with NextDelayMinutes
	// left nil (terminal).
	MarkCompleted(key types.Key, now time.Time) error

	// MarkFailed transitions key to INCOMPLETE and records lastErr.
	MarkFailed(key types.Key, now time.Time, lastErr string) error

	// Defer reverts key to PENDING, bumps RetryCount by one, sets
	// NextQueryTime to nextQueryTime, and records lastErr.
	Defer(key types.Key, now time.Time, nextQueryTime time.Time, lastErr string) error

	// CleanupExpired deletes rows whose ExpirationTime is before now and
	// returns the count removed.
	CleanupExpired(now time.Time) (int, error)

	// Close releases the underlying database handle.
	Close() error
}
