package ingress

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sceylan/pyfinder-go/pkg/events"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// defaultDedupWindow matches the shortest RRSM schedule step (5 minutes):
// a resend inside that window can't possibly be a legitimate follow-up
// alert for the same event.
const defaultDedupWindow = 5 * time.Minute

// Dispatcher turns alert feed events into tracker calls.
type Dispatcher struct {
	tracker *tracker.Tracker
	filter  RegionFilter
	dedup   *dedupWindow
	log     zerolog.Logger
}

func NewDispatcher(tr *tracker.Tracker, filter RegionFilter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		tracker: tr,
		filter:  filter,
		dedup:   newDedupWindow(defaultDedupWindow),
		log:     log,
	}
}

// Run dispatches events received on sub until done is closed or sub
// closes.
func (d *Dispatcher) Run(sub events.Subscriber, now func() time.Time, done <-chan struct{}) {
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := d.Handle(*evt, now()); err != nil {
				d.log.Warn().Str("event_id", evt.ID).Err(err).Msg("failed to dispatch alert")
			}
		case <-done:
			return
		}
	}
}

// Handle applies the region/magnitude filter and dedup window, then
// dispatches a create to RegisterNewSchedule or an update to
// RefreshMetadataAfterEMSCUpdate.
func (d *Dispatcher) Handle(evt events.AlertEvent, now time.Time) error {
	ok, reason := d.filter.Matches(evt.Alert.FlynnRegion, evt.Alert.Magnitude)
	if !ok {
		d.log.Info().Str("event_id", evt.ID).Str("reason", reason).Msg("alert filtered out")
		return nil
	}

	dedupKey := evt.ID + "/" + evt.Alert.LastUpdate
	if d.dedup.Seen(dedupKey, now) {
		d.log.Debug().Str("event_id", evt.ID).Msg("duplicate alert suppressed")
		return nil
	}

	switch evt.Action {
	case events.ActionCreate:
		n, err := d.tracker.RegisterNewSchedule(evt.ID, evt.Alert, now)
		if err != nil {
			return err
		}
		d.log.Info().Str("event_id", evt.ID).Int("rows", n).Msg("registered new schedule")
	case events.ActionUpdate:
		n, err := d.tracker.RefreshMetadataAfterEMSCUpdate(evt.ID, evt.Alert, now)
		if err != nil {
			return err
		}
		d.log.Info().Str("event_id", evt.ID).Int("rows", n).Msg("refreshed schedule metadata")
	default:
		d.log.Debug().Str("event_id", evt.ID).Str("action", string(evt.Action)).Msg("ignoring unhandled alert action")
	}
	return nil
}

// NewAlertEvent is a small convenience so callers that only have a raw
// types.AlertRecord (e.g. a replay source) can build an events.AlertEvent.
func NewAlertEvent(action events.Action, alert types.AlertRecord) events.AlertEvent {
	return events.AlertEvent{ID: alert.UNID, Action: action, Alert: alert}
}
