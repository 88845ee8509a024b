package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler metrics
	ScheduledRowsDue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pyfinder_scheduled_rows_due",
			Help: "Number of ScheduledQuery rows returned by the most recent FetchDue call",
		},
	)

	RowsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_rows_dispatched_total",
			Help: "Total number of rows handed to the worker pool, by service",
		},
		[]string{"service"},
	)

	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pyfinder_poll_cycle_duration_seconds",
			Help:    "Time taken by one scheduler poll cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Worker / pipeline metrics
	RowsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_rows_completed_total",
			Help: "Total number of rows that reached COMPLETED, by service",
		},
		[]string{"service"},
	)

	RowsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_rows_failed_total",
			Help: "Total number of rows that reached INCOMPLETE, by service",
		},
		[]string{"service"},
	)

	RowsDeferredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_rows_deferred_total",
			Help: "Total number of rows reverted to PENDING for retry, by service",
		},
		[]string{"service"},
	)

	RowProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pyfinder_row_processing_duration_seconds",
			Help:    "Time taken to process one row end-to-end, by service",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	// Provider metrics
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_provider_requests_total",
			Help: "Total number of provider HTTP requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pyfinder_provider_request_duration_seconds",
			Help:    "Provider HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	StationsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_stations_fetched_total",
			Help: "Total number of stations returned by a provider response, by provider",
		},
		[]string{"provider"},
	)

	// Engine metrics
	EngineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_engine_runs_total",
			Help: "Total number of engine invocations by outcome (success, nonzero_exit, error)",
		},
		[]string{"outcome"},
	)

	EngineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pyfinder_engine_run_duration_seconds",
			Help:    "Time taken for one engine subprocess invocation",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Emit metrics
	ShakeMapsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pyfinder_shakemaps_published_total",
			Help: "Total number of shake-map artifact sets published",
		},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyfinder_emails_sent_total",
			Help: "Total number of notification emails sent, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(ScheduledRowsDue)
	prometheus.MustRegister(RowsDispatchedTotal)
	prometheus.MustRegister(PollCycleDuration)

	prometheus.MustRegister(RowsCompletedTotal)
	prometheus.MustRegister(RowsFailedTotal)
	prometheus.MustRegister(RowsDeferredTotal)
	prometheus.MustRegister(RowProcessingDuration)

	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(StationsFetchedTotal)

	prometheus.MustRegister(EngineRunsTotal)
	prometheus.MustRegister(EngineRunDuration)

	prometheus.MustRegister(ShakeMapsPublishedTotal)
	prometheus.MustRegister(EmailsSentTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
