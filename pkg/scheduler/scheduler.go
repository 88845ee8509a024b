package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sceylan/pyfinder-go/pkg/metrics"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// DefaultPollInterval matches spec.md's §4.5 default poll cadence.
const DefaultPollInterval = 10 * time.Second

// DefaultPoolSize matches spec.md's §4.5 default worker pool size.
const DefaultPoolSize = 10

// DefaultCleanupInterval is how often the scheduler purges rows past
// their ExpirationTime. Coarser than the poll interval since expiration
// is measured in hours, not seconds.
const DefaultCleanupInterval = 1 * time.Hour

// Processor runs the per-row pipeline (merge, format, engine, emit). It is
// implemented by pkg/worker.Worker; the scheduler only needs the
// interface so it can be tested without constructing a real pipeline.
type Processor interface {
	Process(ctx context.Context, row *types.ScheduledQuery)
}

// Scheduler polls the store for due rows and dispatches them to a bounded
// worker pool.
type Scheduler struct {
	store           storage.Store
	tracker         *tracker.Tracker
	processor       Processor
	pool            *Pool
	pollInterval    time.Duration
	cleanupInterval time.Duration
	service         string // restrict FetchDue to one service; empty means all
	logger          zerolog.Logger
	stopCh          chan struct{}
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = d }
}

func WithCleanupInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.cleanupInterval = d }
}

func WithService(service string) Option {
	return func(s *Scheduler) { s.service = service }
}

func NewScheduler(store storage.Store, tr *tracker.Tracker, processor Processor, poolSize int, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:           store,
		tracker:         tr,
		processor:       processor,
		pool:            NewPool(poolSize),
		pollInterval:    DefaultPollInterval,
		cleanupInterval: DefaultCleanupInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the poll loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop ends the poll loop and waits for in-flight pool work to drain.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.pool.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(s.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error().Err(err).Msg("poll cycle failed")
			}
		case <-cleanupTicker.C:
			s.cleanup()
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// cleanup purges rows past their ExpirationTime. Run on its own, coarser
// ticker so a slow cleanup pass never delays the poll cycle.
func (s *Scheduler) cleanup() {
	removed, err := s.tracker.CleanupExpired(time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("cleanup cycle failed")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("purged expired rows")
	}
}

// poll fetches due rows, transitions each to PROCESSING, and dispatches it
// to the pool. A row is skipped (not dispatched) if the CAS transition
// fails, which can happen if another poll cycle already claimed it.
func (s *Scheduler) poll(ctx context.Context) error {
	now := time.Now()
	due, err := s.store.FetchDue(now, s.service)
	if err != nil {
		return err
	}

	metrics.ScheduledRowsDue.Set(float64(len(due)))

	for _, row := range due {
		row := row
		if err := s.tracker.MarkAsProcessing(row.Key, now); err != nil {
			s.logger.Warn().
				Str("event_id", row.EventID).
				Str("service", row.Service).
				Int("delay", row.DelayMinutes).
				Err(err).
				Msg("failed to claim row, skipping this cycle")
			continue
		}
		row.Status = types.StatusProcessing

		s.logger.Info().
			Str("event_id", row.EventID).
			Str("service", row.Service).
			Int("delay", row.DelayMinutes).
			Msg("dispatching row to worker pool")

		s.pool.Submit(func() {
			s.processor.Process(ctx, row)
		})
	}
	return nil
}
