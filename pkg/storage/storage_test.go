package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// storeFactories lets every test run against both backends so behavior
// stays in sync between BoltStore and InMemoryStore.
func storeFactories(t *testing.T) map[string]storage.Store {
	boltDir := t.TempDir()
	bolt, err := storage.NewBoltStore(boltDir)
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]storage.Store{
		"bolt":   bolt,
		"memory": storage.NewInMemoryStore(),
	}
}

func sampleRow(eventID, service string, delay int, next time.Time) *types.ScheduledQuery {
	return &types.ScheduledQuery{
		Key: types.Key{EventID: eventID, Service: service, DelayMinutes: delay},
		Status: types.StatusPending,
		OriginTime: next.Add(-time.Duration(delay) * time.Minute),
		NextQueryTime: next,
		CurrentDelayMinutes: delay,
		ExpirationTime: next.Add(48 * time.Hour),
		Priority: 0,
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			row := sampleRow("evt1", "RRSM", 0, now)
			require.NoError(t, s.Add(row))

			err := s.Add(sampleRow("evt1", "RRSM", 0, now))
			require.Error(t, err)
			assert.ErrorAs(t, err, new(*perrors.DuplicateKeyError))
		})
	}
}

func TestFetchDueOrderingAndFiltering(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()

			low := sampleRow("evt1", "RRSM", 0, now.Add(-time.Minute))
			low.Priority = 0
			high := sampleRow("evt2", "RRSM", 0, now.Add(-time.Minute))
			high.Priority = 5
			future := sampleRow("evt3", "RRSM", 0, now.Add(time.Hour))
			otherService := sampleRow("evt4", "ESM", 0, now.Add(-time.Minute))

			for _, r := range []*types.ScheduledQuery{low, high, future, otherService} {
				require.NoError(t, s.Add(r))
			}

			due, err := s.FetchDue(now, "RRSM")
			require.NoError(t, err)
			require.Len(t, due, 2)
			assert.Equal(t, "evt2", due[0].EventID, "higher priority row must come first")
			assert.Equal(t, "evt1", due[1].EventID)

			dueAll, err := s.FetchDue(now, "")
			require.NoError(t, err)
			assert.Len(t, dueAll, 3)
		})
	}
}

func TestMarkCompletedSetsTerminal(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			key := types.Key{EventID: "evt1", Service: "RRSM", DelayMinutes: 2880}
			row := sampleRow(key.EventID, key.Service, key.DelayMinutes, now)
			nd := 2880
			row.NextDelayMinutes = &nd
			require.NoError(t, s.Add(row))

			require.NoError(t, s.MarkCompleted(key, now))

			got, err := s.Get(key)
			require.NoError(t, err)
			assert.Equal(t, types.StatusCompleted, got.Status)
			assert.True(t, got.IsTerminal())
			require.NotNil(t, got.LastQueryTime)
			assert.WithinDuration(t, now, *got.LastQueryTime, time.Millisecond)
		})
	}
}

func TestDeferIncrementsRetryAndReschedules(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			key := types.Key{EventID: "evt1", Service: "RRSM", DelayMinutes: 0}
			require.NoError(t, s.Add(sampleRow(key.EventID, key.Service, key.DelayMinutes, now)))

			next := now.Add(5 * time.Minute)
			require.NoError(t, s.Defer(key, now, next, "transport timeout"))

			got, err := s.Get(key)
			require.NoError(t, err)
			assert.Equal(t, types.StatusPending, got.Status)
			assert.Equal(t, 1, got.RetryCount)
			assert.Equal(t, "transport timeout", got.LastError)
			assert.WithinDuration(t, next, got.NextQueryTime, time.Millisecond)
		})
	}
}

func TestMarkFailedSetsIncomplete(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			key := types.Key{EventID: "evt1", Service: "RRSM", DelayMinutes: 0}
			require.NoError(t, s.Add(sampleRow(key.EventID, key.Service, key.DelayMinutes, now)))

			require.NoError(t, s.MarkFailed(key, now, "retry limit reached: boom"))

			got, err := s.Get(key)
			require.NoError(t, err)
			assert.Equal(t, types.StatusIncomplete, got.Status)
			assert.Contains(t, got.LastError, "retry limit reached")
			require.NotNil(t, got.LastQueryTime)
			assert.WithinDuration(t, now, *got.LastQueryTime, time.Millisecond)
		})
	}
}

func TestCleanupExpiredRemovesOnlyPastRows(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			expired := sampleRow("evt1", "RRSM", 0, now)
			expired.ExpirationTime = now.Add(-time.Minute)
			fresh := sampleRow("evt2", "RRSM", 0, now)
			fresh.ExpirationTime = now.Add(time.Hour)

			require.NoError(t, s.Add(expired))
			require.NoError(t, s.Add(fresh))

			n, err := s.CleanupExpired(now)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, err = s.Get(expired.Key)
			assert.Error(t, err)
			_, err = s.Get(fresh.Key)
			assert.NoError(t, err)
		})
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := storage.NewBoltStore(dir)
	require.NoError(t, err)

	now := time.Now()
	key := types.Key{EventID: "evt1", Service: "RRSM", DelayMinutes: 0}
	require.NoError(t, s1.Add(sampleRow(key.EventID, key.Service, key.DelayMinutes, now)))
	require.NoError(t, s1.Close())

	require.FileExists(t, filepath.Join(dir, "pyfinder.db"))

	s2, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(key)
	require.NoError(t, err)
	assert.Equal(t, key, got.Key)
}
