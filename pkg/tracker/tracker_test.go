package tracker_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceylan/pyfinder-go/pkg/policy"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

func newTestTracker() (*tracker.Tracker, storage.Store) {
	store := storage.NewInMemoryStore()
	reg := policy.NewDefaultRegistry()
	return tracker.New(store, reg, zerolog.Nop()), store
}

func sampleAlert(unid string, mag float64, originTime time.Time) types.AlertRecord {
	return types.AlertRecord{
		UNID:        unid,
		Time:        types.FormatTime(originTime),
		LastUpdate:  types.FormatTime(originTime),
		Action:      "create",
		Magnitude:   mag,
		FlynnRegion: "CENTRAL ITALY",
	}
}

func TestBatchRegisterFromPolicyInsertsOneRowPerDelay(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	origin := now.Add(-2 * time.Minute)
	alert := sampleAlert("evt1", 6.1, origin)

	n, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	rows, err := store.ListByEvent("evt1")
	require.NoError(t, err)
	assert.Len(t, rows, 8)
}

func TestBatchRegisterFromPolicySkipsDuplicates(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	origin := now.Add(-2 * time.Minute)
	alert := sampleAlert("evt1", 6.1, origin)

	_, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)

	n, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second batch should skip all eight existing rows")

	rows, err := store.ListByEvent("evt1")
	require.NoError(t, err)
	assert.Len(t, rows, 8)
}

func TestRefreshMetadataAfterEMSCUpdateSkipsTerminalRows(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	origin := now.Add(-2 * time.Minute)
	alert := sampleAlert("evt1", 6.1, origin)

	_, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)

	completedKey := types.Key{EventID: "evt1", Service: policy.ServiceRRSM, DelayMinutes: 2880}
	require.NoError(t, store.MarkCompleted(completedKey, now))

	updatedAlert := alert
	updatedAlert.Magnitude = 6.5
	updatedAlert.LastUpdate = types.FormatTime(now)

	n, err := tr.RefreshMetadataAfterEMSCUpdate("evt1", updatedAlert, now)
	require.NoError(t, err)
	assert.Equal(t, 7, n, "the completed row must be left alone")

	completedRow, err := store.Get(completedKey)
	require.NoError(t, err)
	assert.NotContains(t, completedRow.EMSCAlertJSON, "6.5")
}

func TestMarkAsProcessingThenCompleted(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	key := types.Key{EventID: "evt1", Service: policy.ServiceRRSM, DelayMinutes: 0}
	require.NoError(t, store.Add(&types.ScheduledQuery{
		Key:            key,
		Status:         types.StatusPending,
		OriginTime:     now,
		NextQueryTime:  now,
		ExpirationTime: now.Add(time.Hour),
	}))

	require.NoError(t, tr.MarkAsProcessing(key, now))
	row, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, row.Status)

	require.NoError(t, tr.MarkAsCompleted(key, now))
	row, err = store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, row.Status)
	assert.True(t, row.IsTerminal())
}

func TestMarkAsProcessingRejectsRowNotPending(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	key := types.Key{EventID: "evt1", Service: policy.ServiceRRSM, DelayMinutes: 0}
	require.NoError(t, store.Add(&types.ScheduledQuery{
		Key:            key,
		Status:         types.StatusProcessing,
		OriginTime:     now,
		NextQueryTime:  now,
		ExpirationTime: now.Add(time.Hour),
	}))

	err := tr.MarkAsProcessing(key, now)
	assert.ErrorIs(t, err, tracker.ErrNotPending, "a second claim of an already-processing row must lose the race")
}

func TestBatchRegisterFromPolicySetsCurrentDelayPerRow(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	origin := now.Add(-2 * time.Minute)
	alert := sampleAlert("evt1", 6.1, origin)

	_, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)

	rows, err := store.ListByEvent("evt1")
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, row := range rows {
		assert.Equal(t, row.DelayMinutes, row.CurrentDelayMinutes, "each row's current delay must match the bucket it represents")
		seen[row.CurrentDelayMinutes] = true
	}
	assert.Equal(t, 8, len(seen), "every delay bucket must be distinct")
}

func TestIncrementRetryThenDeferOrFail(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	key := types.Key{EventID: "evt1", Service: policy.ServiceRRSM, DelayMinutes: 0}
	require.NoError(t, store.Add(&types.ScheduledQuery{
		Key:            key,
		Status:         types.StatusProcessing,
		OriginTime:     now,
		NextQueryTime:  now,
		ExpirationTime: now.Add(time.Hour),
	}))

	retryCount, err := tr.IncrementRetry(key, now)
	require.NoError(t, err)
	assert.Equal(t, 1, retryCount)

	next := now.Add(5 * time.Minute)
	require.NoError(t, tr.DeferEvent(key, now, next, "transport timeout"))
	row, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, row.Status)
	assert.Equal(t, 1, row.RetryCount, "DeferEvent itself must not bump RetryCount again")
	assert.WithinDuration(t, next, row.NextQueryTime, time.Millisecond)

	require.NoError(t, tr.MarkAsFailed(key, now, "retry limit reached: boom"))
	row, err = store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIncomplete, row.Status)
}

func TestGetEventMetaParsesRegionAndSwallowsBadJSON(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	origin := now.Add(-2 * time.Minute)
	alert := sampleAlert("evt1", 6.1, origin)

	_, err := tr.BatchRegisterFromPolicy("evt1", alert, policy.DefaultRRSMSchedule(), now)
	require.NoError(t, err)

	meta, err := tr.GetEventMeta("evt1")
	require.NoError(t, err)
	assert.Equal(t, "CENTRAL ITALY", meta.Region)
	assert.Equal(t, 6.1, meta.Magnitude)

	badKey := types.Key{EventID: "evt2", Service: policy.ServiceRRSM, DelayMinutes: 0}
	require.NoError(t, store.Add(&types.ScheduledQuery{
		Key:            badKey,
		Status:         types.StatusPending,
		OriginTime:     now,
		NextQueryTime:  now,
		ExpirationTime: now.Add(time.Hour),
		EMSCAlertJSON:  "not valid json",
	}))

	meta, err = tr.GetEventMeta("evt2")
	require.NoError(t, err)
	assert.Empty(t, meta.Region)
}

func TestCleanupExpiredDelegatesToStore(t *testing.T) {
	tr, store := newTestTracker()
	now := time.Now()
	key := types.Key{EventID: "evt1", Service: policy.ServiceRRSM, DelayMinutes: 0}
	require.NoError(t, store.Add(&types.ScheduledQuery{
		Key:            key,
		Status:         types.StatusPending,
		OriginTime:     now,
		NextQueryTime:  now,
		ExpirationTime: now.Add(-time.Minute),
	}))

	n, err := tr.CleanupExpired(now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
