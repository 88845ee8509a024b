package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleShouldQuery(t *testing.T) {
	origin := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	s := DefaultRRSMSchedule()
	meta := Meta{OriginTime: origin}

	cases := []struct {
		elapsed time.Duration
		want    bool
	}{
		{0, true},
		{30 * time.Second, true}, // within 1 min drift of delay 0
		{2 * time.Minute, false},
		{5 * time.Minute, true},
		{15 * time.Minute, true},
		{2880 * time.Minute, true},
		{(2880 + 15) * time.Minute, false}, // at the grace boundary but outside drift of every delay
		{(2880 + 16) * time.Minute, false}, // past max delay + grace
	}
	for _, c := range cases {
		now := origin.Add(c.elapsed)
		got, reason := s.ShouldQuery(meta, now)
		assert.Equalf(t, c.want, got, "elapsed=%v reason=%q", c.elapsed, reason)
	}
}

func TestScheduleNextAndCurrentDelay(t *testing.T) {
	origin := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	s := DefaultRRSMSchedule()
	meta := Meta{OriginTime: origin}

	now := origin.Add(10 * time.Minute)
	next := s.NextDelayMinutes(meta, now)
	require.NotNil(t, next)
	assert.Equal(t, 15, *next)
	assert.Equal(t, 5, s.CurrentDelayMinutes(meta, now))

	lastStageNow := origin.Add(2880 * time.Minute)
	assert.Nil(t, s.NextDelayMinutes(meta, lastStageNow))
	assert.Equal(t, 2880, s.CurrentDelayMinutes(meta, lastStageNow))
}

func TestScheduleShouldRetryOnFailure(t *testing.T) {
	s := DefaultRRSMSchedule()
	assert.True(t, s.ShouldRetryOnFailure(Meta{RetryCount: 0}))
	assert.True(t, s.ShouldRetryOnFailure(Meta{RetryCount: 2}))
	assert.False(t, s.ShouldRetryOnFailure(Meta{RetryCount: 3}))
}

func TestScheduleIsTerminal(t *testing.T) {
	origin := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	s := DefaultRRSMSchedule()
	meta := Meta{OriginTime: origin}

	assert.False(t, s.IsTerminal(meta, origin.Add(2880*time.Minute)))
	assert.True(t, s.IsTerminal(meta, origin.Add((2880+16)*time.Minute)))
}

func TestRegistryPlaceholders(t *testing.T) {
	reg := NewDefaultRegistry()
	require.NotNil(t, reg.Get(ServiceRRSM))

	esm := reg.Get(ServiceESM)
	require.NotNil(t, esm)
	ok, _ := esm.ShouldQuery(Meta{}, time.Now())
	assert.False(t, ok)
	assert.Nil(t, esm.NextDelayMinutes(Meta{}, time.Now()))
	assert.True(t, esm.IsTerminal(Meta{}, time.Now()))

	assert.Nil(t, reg.Get("unknown-service"))
}
