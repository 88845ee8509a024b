/*
Package metrics provides Prometheus metrics collection and exposition for
the shake-map pipeline.

All metrics are defined and registered at package init so they're
available before main() runs; components update them inline rather than
through a separate polling collector, since there is no persistent
cluster state to periodically re-derive counts from — a row's lifecycle
transition IS the event worth counting.

# Metrics Catalog

Scheduler:

	pyfinder_scheduled_rows_due            gauge
	pyfinder_rows_dispatched_total{service} counter
	pyfinder_poll_cycle_duration_seconds    histogram

Worker / pipeline:

	pyfinder_rows_completed_total{service}       counter
	pyfinder_rows_failed_total{service}          counter
	pyfinder_rows_deferred_total{service}        counter
	pyfinder_row_processing_duration_seconds{service} histogram

Providers:

	pyfinder_provider_requests_total{provider,outcome} counter
	pyfinder_provider_request_duration_seconds{provider} histogram
	pyfinder_stations_fetched_total{provider}          counter

Engine:

	pyfinder_engine_runs_total{outcome}        counter
	pyfinder_engine_run_duration_seconds       histogram

Emit:

	pyfinder_shakemaps_published_total     counter
	pyfinder_emails_sent_total{outcome}    counter

# Usage

	timer := metrics.NewTimer()
	// ... process a row ...
	timer.ObserveDurationVec(metrics.RowProcessingDuration, service)
	metrics.RowsCompletedTotal.WithLabelValues(service).Inc()

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
