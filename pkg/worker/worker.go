package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/sceylan/pyfinder-go/pkg/emit"
	"github.com/sceylan/pyfinder-go/pkg/engine"
	"github.com/sceylan/pyfinder-go/pkg/merge"
	"github.com/sceylan/pyfinder-go/pkg/metrics"
	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/policy"
	"github.com/sceylan/pyfinder-go/pkg/providers"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// defaultDeferBackoff is how far into the future a deferred row's
// next_query_time is pushed when a stage fails but still has retries left.
const defaultDeferBackoff = 2 * time.Minute

// Config wires a Worker to its collaborators. RRSM and ESM are fetched on
// every row regardless of which service scheduled it, matching the
// registry's placeholder-policy note that ESM is queried inline rather
// than polled independently.
type Config struct {
	Tracker           *tracker.Tracker
	Registry          *policy.Registry
	RRSM              providers.Fetcher
	ESM               providers.Fetcher
	Engine            *engine.Runner
	MagnitudeTrigger  float64
	StationDistanceKM float64
	ExportRoot        string
	ShakeMapCommand   string
	SMTP              emit.SMTPConfig
	LiveMode          bool
	Logger            zerolog.Logger
}

// Worker implements scheduler.Processor: it runs one row's full follow-up
// pipeline and reports the outcome back to the tracker.
type Worker struct {
	cfg Config
}

func New(cfg Config) *Worker {
	return &Worker{cfg: cfg}
}

// Process runs row's pipeline and transitions its tracker state according
// to spec.md §4.6. It never panics or returns an error to the scheduler:
// all failure paths are absorbed into a tracker state transition and a
// log line, since the scheduler pool has nothing useful to do with an
// error from a fire-and-forget task.
func (w *Worker) Process(ctx context.Context, row *types.ScheduledQuery) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RowProcessingDuration, row.Service)

	if err := w.process(ctx, row); err != nil {
		w.cfg.Logger.Error().
			Str("event_id", row.EventID).
			Str("service", row.Service).
			Int("delay", row.DelayMinutes).
			Err(err).
			Msg("row processing failed")
	}
}

func (w *Worker) process(ctx context.Context, row *types.ScheduledQuery) error {
	now := time.Now()
	terminal := row.IsTerminal()

	if terminal {
		if err := w.cfg.Tracker.MarkAsCompleted(row.Key, now); err != nil {
			return fmt.Errorf("pre-mark terminal row completed: %w", err)
		}
	}

	solution, err := w.runPipeline(ctx, row)
	if err != nil {
		if terminal {
			w.cfg.Logger.Warn().
				Str("event_id", row.EventID).
				Err(err).
				Msg("terminal stage pipeline failed after being pre-marked completed")
			return nil
		}
		return w.handleFailure(row, now, err)
	}

	metrics.RowsCompletedTotal.WithLabelValues(row.Service).Inc()
	if !terminal {
		if err := w.cfg.Tracker.MarkAsCompleted(row.Key, time.Now()); err != nil {
			return fmt.Errorf("mark row completed: %w", err)
		}
	}

	return w.publish(ctx, row, solution)
}

func (w *Worker) handleFailure(row *types.ScheduledQuery, now time.Time, pipelineErr error) error {
	retryCount, err := w.cfg.Tracker.IncrementRetry(row.Key, now)
	if err != nil {
		return fmt.Errorf("increment retry: %w", err)
	}

	pol := w.cfg.Registry.Get(row.Service)
	meta := policy.Meta{OriginTime: row.OriginTime, RetryCount: retryCount}

	if pol != nil && pol.ShouldRetryOnFailure(meta) {
		metrics.RowsDeferredTotal.WithLabelValues(row.Service).Inc()
		next := now.Add(defaultDeferBackoff)
		return w.cfg.Tracker.DeferEvent(row.Key, now, next, pipelineErr.Error())
	}

	metrics.RowsFailedTotal.WithLabelValues(row.Service).Inc()
	return w.cfg.Tracker.MarkAsFailed(row.Key, now, "retry limit reached: "+pipelineErr.Error())
}

// runPipeline covers §4.7 (merge/format) and §4.8 (engine run + parse).
func (w *Worker) runPipeline(ctx context.Context, row *types.ScheduledQuery) (*types.FinderSolution, error) {
	meta, err := w.cfg.Tracker.GetEventMeta(row.EventID)
	if err != nil {
		return nil, &perrors.ParseError{Source: "event meta", Err: err}
	}

	stations, err := w.fetchStations(ctx, row, meta)
	if err != nil {
		return nil, err
	}

	event := types.FinderEvent{
		OriginTimeEpoch: meta.OriginTime.Unix(),
		Lat:             meta.Lat,
		Lon:             meta.Lon,
		DepthKM:         meta.DepthKM,
		Magnitude:       meta.Magnitude,
		CatalogEventID:  row.EventID,
	}
	blob := merge.FormatEngineInput(event, stations, w.cfg.LiveMode)

	runResult, workDir, usedFallback, err := w.cfg.Engine.RunEvent(ctx, engine.ConfigParams{
		EventID:           row.EventID,
		MagnitudeTrigger:  w.cfg.MagnitudeTrigger,
		StationDistanceKM: w.cfg.StationDistanceKM,
	}, blob, w.cfg.LiveMode)
	if usedFallback {
		w.cfg.Logger.Warn().Str("event_id", row.EventID).Msg("engine working directory root unwritable, used home fallback")
	}
	if err != nil {
		metrics.EngineRunsTotal.WithLabelValues(engineOutcome(err)).Inc()
		return nil, err
	}
	metrics.EngineRunsTotal.WithLabelValues("success").Inc()

	solution, err := engine.ParseOutput(workDir, runResult.EngineEventID, row.EventID)
	if err != nil {
		return nil, err
	}
	return solution, nil
}

func engineOutcome(err error) string {
	var engErr *perrors.EngineError
	if ok := asEngineError(err, &engErr); ok {
		if engErr.ExitCode >= 0 {
			return "nonzero_exit"
		}
	}
	return "error"
}

func asEngineError(err error, target **perrors.EngineError) bool {
	e, ok := err.(*perrors.EngineError)
	if ok {
		*target = e
	}
	return ok
}

// fetchStations queries both providers with retry, tolerating either one
// failing outright; only a double failure is fatal to the stage.
func (w *Worker) fetchStations(ctx context.Context, row *types.ScheduledQuery, meta *tracker.EventMeta) ([]types.RawStation, error) {
	params := providers.QueryParams{EventID: row.EventID, OriginTime: meta.OriginTime, Lat: meta.Lat, Lon: meta.Lon}

	var rrsmStations, esmStations []types.RawStation
	var rrsmErr, esmErr error

	if w.cfg.RRSM != nil {
		readings, err := providers.RetryFetch(ctx, w.cfg.RRSM, params, w.cfg.Logger)
		if err != nil {
			rrsmErr = err
			metrics.ProviderRequestsTotal.WithLabelValues(policy.ServiceRRSM, "failure").Inc()
		} else {
			rrsmStations = merge.ExtractStations(policy.ServiceRRSM, toChannelReadings(readings))
			metrics.ProviderRequestsTotal.WithLabelValues(policy.ServiceRRSM, "success").Inc()
			metrics.StationsFetchedTotal.WithLabelValues(policy.ServiceRRSM).Add(float64(len(rrsmStations)))
		}
	}

	if w.cfg.ESM != nil {
		readings, err := providers.RetryFetch(ctx, w.cfg.ESM, params, w.cfg.Logger)
		if err != nil {
			esmErr = err
			metrics.ProviderRequestsTotal.WithLabelValues(policy.ServiceESM, "failure").Inc()
		} else {
			esmStations = merge.ExtractStations(policy.ServiceESM, toChannelReadings(readings))
			metrics.ProviderRequestsTotal.WithLabelValues(policy.ServiceESM, "success").Inc()
			metrics.StationsFetchedTotal.WithLabelValues(policy.ServiceESM).Add(float64(len(esmStations)))
		}
	}

	if rrsmErr != nil && esmErr != nil {
		return nil, &perrors.TransportError{Provider: "RRSM+ESM", Op: "fetch stations", Err: fmt.Errorf("%v; %v", rrsmErr, esmErr)}
	}

	return merge.Merge(rrsmStations, esmStations), nil
}

// toChannelReadings is a no-op passthrough retained so fetchStations reads
// linearly; RetryFetch already returns []merge.ChannelReading.
func toChannelReadings(readings []merge.ChannelReading) []merge.ChannelReading { return readings }

// publish covers §4.9: export files, shake-map command, archive, email.
func (w *Worker) publish(ctx context.Context, row *types.ScheduledQuery, solution *types.FinderSolution) error {
	augID := emit.AugmentedID(row.EventID, row.DelayMinutes)
	exportDir := filepath.Join(w.cfg.ExportRoot, augID)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return &perrors.ConfigError{Op: "create export directory", Err: err}
	}

	now := time.Now()
	eventXML, err := emit.WriteEventXML(exportDir, solution.Event, row.EventID)
	if err != nil {
		return err
	}
	eventDatXML, err := emit.WriteEventDatXML(exportDir, solution.Channels, now)
	if err != nil {
		return err
	}
	ruptureJSON, err := emit.WriteRuptureJSON(exportDir, solution.Rupture, row.EventID)
	if err != nil {
		return err
	}

	if w.cfg.ShakeMapCommand != "" {
		if _, stderr, err := emit.RunShakeMapCommand(ctx, w.cfg.ShakeMapCommand, eventXML, eventDatXML, ruptureJSON); err != nil {
			w.cfg.Logger.Warn().Str("event_id", row.EventID).Str("stderr", stderr).Err(err).Msg("shakemap command failed")
		}
	}

	tempDataDir := filepath.Join(w.cfg.Engine.WorkingDirRoot, row.EventID, "temp_data", solution.EngineEventID)
	archivePath, err := emit.ArchiveProducts(tempDataDir, exportDir, now)
	if err != nil {
		w.cfg.Logger.Warn().Str("event_id", row.EventID).Err(err).Msg("failed to archive shakemap products")
		archivePath = ""
	}

	metrics.ShakeMapsPublishedTotal.Inc()

	if w.cfg.SMTP.Host == "" {
		return nil
	}

	notification := emit.Notification{
		Subject:        fmt.Sprintf("pyfinder: event %s stage %d complete", row.EventID, row.DelayMinutes),
		Body:           fmt.Sprintf("Event %s reached magnitude %.1f. Stage %d minutes processed.", row.EventID, solution.Event.Magnitude, row.DelayMinutes),
		AttachmentPath: archivePath,
	}
	outcome := "sent"
	if err := emit.SendNotification(w.cfg.SMTP, notification); err != nil {
		outcome = "failed"
		w.cfg.Logger.Warn().Str("event_id", row.EventID).Err(err).Msg("failed to send notification email")
	}
	metrics.EmailsSentTotal.WithLabelValues(outcome).Inc()

	return nil
}
