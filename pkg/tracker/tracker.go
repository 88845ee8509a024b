package tracker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/policy"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// expirationBuffer is added on top of a series' last scheduled delay so a
// slow final query still has room to land before CleanupExpired reaps the
// row.
const expirationBuffer = 24 * time.Hour

// ErrNotPending is returned by MarkAsProcessing when the row is no longer
// PENDING, i.e. another poller already claimed it. Callers (the scheduler)
// treat this as "skip this row this cycle", not a failure.
var ErrNotPending = errors.New("tracker: row is not pending")

// EventMeta is the subset of event-level facts a caller outside the store
// needs: origin time and region, recovered from the EMSCAlertJSON blob of
// the first row ListByEvent returns for the event.
type EventMeta struct {
	EventID    string
	OriginTime time.Time
	Magnitude  float64
	Region     string
	Lat, Lon   float64
	DepthKM    float64
}

// Tracker is the facade ingress and worker use instead of reaching into
// storage.Store directly; the scheduler uses it for status transitions and
// reads due rows with storage.Store.FetchDue itself.
type Tracker struct {
	store    storage.Store
	registry *policy.Registry
	log      zerolog.Logger
}

func New(store storage.Store, registry *policy.Registry, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, registry: registry, log: log}
}

// BatchRegisterFromPolicy inserts one ScheduledQuery row per delay in
// pol.Delays(), building the follow-up chain for a single service. Rows
// already present for (eventID, service, delay) are skipped with a
// warning rather than failing the whole batch, since EMSC commonly resends
// the same event id across a scroll of alert updates.
func (t *Tracker) BatchRegisterFromPolicy(eventID string, alert types.AlertRecord, pol policy.Policy, now time.Time) (int, error) {
	delays := pol.Delays()
	if len(delays) == 0 {
		return 0, nil
	}

	origin, err := types.ParseTime(alert.Time)
	if err != nil {
		return 0, &perrors.ParseError{Source: "alert.time", Err: err}
	}

	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return 0, &perrors.ParseError{Source: "alert", Err: err}
	}

	expiration := origin.Add(time.Duration(delays[len(delays)-1])*time.Minute + expirationBuffer)
	priority := priorityFromMagnitude(alert.Magnitude)

	inserted := 0
	for i, d := range delays {
		var nextDelay *int
		if i+1 < len(delays) {
			nd := delays[i+1]
			nextDelay = &nd
		}

		row := &types.ScheduledQuery{
			Key:                 types.Key{EventID: eventID, Service: pol.Name(), DelayMinutes: d},
			Status:              types.StatusPending,
			OriginTime:          origin,
			LastUpdateTime:      now,
			NextQueryTime:       origin.Add(time.Duration(d) * time.Minute),
			CurrentDelayMinutes: d,
			NextDelayMinutes:    nextDelay,
			ExpirationTime:      expiration,
			Priority:            priority,
			EMSCAlertJSON:       string(alertJSON),
			LastModified:        now,
		}

		if err := t.store.Add(row); err != nil {
			var dup *perrors.DuplicateKeyError
			if errors.As(err, &dup) {
				t.log.Warn().Str("event_id", eventID).Str("service", pol.Name()).Int("delay", d).Msg("schedule row already exists, skipping")
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// RegisterNewSchedule runs BatchRegisterFromPolicy for every registered
// policy that has a non-empty delay schedule (placeholder policies like
// ESM/EMSC contribute nothing) and returns the total row count inserted.
func (t *Tracker) RegisterNewSchedule(eventID string, alert types.AlertRecord, now time.Time) (int, error) {
	total := 0
	for _, pol := range t.registry.All() {
		n, err := t.BatchRegisterFromPolicy(eventID, alert, pol, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// RefreshMetadataAfterEMSCUpdate rewrites EMSCAlertJSON and LastUpdateTime
// on every still-open (PENDING or PROCESSING) row for eventID. COMPLETED
// and INCOMPLETE rows are left untouched: a late alert update must not
// resurrect a series that has already finished or given up.
func (t *Tracker) RefreshMetadataAfterEMSCUpdate(eventID string, alert types.AlertRecord, now time.Time) (int, error) {
	rows, err := t.store.ListByEvent(eventID)
	if err != nil {
		return 0, err
	}

	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return 0, &perrors.ParseError{Source: "alert", Err: err}
	}

	updated := 0
	for _, row := range rows {
		if row.Status != types.StatusPending && row.Status != types.StatusProcessing {
			continue
		}
		err := t.store.UpdateFields(row.Key, func(r *types.ScheduledQuery) error {
			r.EMSCAlertJSON = string(alertJSON)
			r.LastUpdateTime = now
			r.LastModified = now
			return nil
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// MarkAsProcessing compare-and-swaps key from PENDING to PROCESSING. The
// check and the write happen inside the store's single UpdateFields
// transaction, so if two pollers race for the same row, exactly one sees
// StatusPending and wins; the other observes ErrNotPending and must skip
// the row for this cycle rather than dispatch it a second time.
func (t *Tracker) MarkAsProcessing(key types.Key, now time.Time) error {
	return t.store.UpdateFields(key, func(row *types.ScheduledQuery) error {
		if row.Status != types.StatusPending {
			return ErrNotPending
		}
		row.Status = types.StatusProcessing
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (t *Tracker) MarkAsCompleted(key types.Key, now time.Time) error {
	return t.store.MarkCompleted(key, now)
}

func (t *Tracker) MarkAsFailed(key types.Key, now time.Time, lastErr string) error {
	return t.store.MarkFailed(key, now, lastErr)
}

// IncrementRetry bumps key's RetryCount and returns the new value, so the
// worker can ask the policy ShouldRetryOnFailure without a second read.
func (t *Tracker) IncrementRetry(key types.Key, now time.Time) (int, error) {
	var retryCount int
	err := t.store.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.RetryCount++
		row.LastUpdateTime = now
		row.LastModified = now
		retryCount = row.RetryCount
		return nil
	})
	return retryCount, err
}

// DeferEvent reverts key to PENDING with a new NextQueryTime and recorded
// error, without touching RetryCount (the worker calls IncrementRetry
// first and branches on the result before deciding whether to defer or
// give up).
func (t *Tracker) DeferEvent(key types.Key, now time.Time, nextQueryTime time.Time, lastErr string) error {
	return t.store.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusPending
		row.LastError = lastErr
		row.NextQueryTime = nextQueryTime
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

// GetEventMeta recovers event-level facts from any one row belonging to
// eventID. Region is parsed out of the stored EMSCAlertJSON; a malformed
// or absent blob yields an empty Region rather than an error, since the
// caller usually just wants it for a log line or an export filename.
func (t *Tracker) GetEventMeta(eventID string) (*EventMeta, error) {
	rows, err := t.store.ListByEvent(eventID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("tracker: no rows found for event " + eventID)
	}

	row := rows[0]
	meta := &EventMeta{EventID: eventID, OriginTime: row.OriginTime}

	var alert types.AlertRecord
	if err := json.Unmarshal([]byte(row.EMSCAlertJSON), &alert); err == nil {
		meta.Magnitude = alert.Magnitude
		meta.Region = alert.FlynnRegion
		meta.Lat = alert.Lat
		meta.Lon = alert.Lon
		meta.DepthKM = alert.DepthKM
	} else {
		t.log.Debug().Str("event_id", eventID).Err(err).Msg("could not parse stored alert json for region")
	}
	return meta, nil
}

// CleanupExpired delegates directly to the store.
func (t *Tracker) CleanupExpired(now time.Time) (int, error) {
	return t.store.CleanupExpired(now)
}

// Get returns a single row by key, delegating directly to the store.
func (t *Tracker) Get(key types.Key) (*types.ScheduledQuery, error) {
	return t.store.Get(key)
}

// Store exposes the underlying store for callers (tests, admin tooling)
// that need a capability the Tracker facade does not itself expose.
func (t *Tracker) Store() storage.Store {
	return t.store
}

// priorityFromMagnitude is a deterministic stand-in ranking, not a
// seismological judgment: bigger events get fetched first when the worker
// pool is saturated.
func priorityFromMagnitude(mag float64) int {
	switch {
	case mag >= 7:
		return 3
	case mag >= 6:
		return 2
	case mag >= 5:
		return 1
	default:
		return 0
	}
}
