/*
Package health provides reusable health-check primitives and a monitor
that feeds their results into pkg/metrics' component registry, which in
turn backs the /health and /ready HTTP handlers.

# Checker types

Three Checker implementations cover the external dependencies a pyfinder
daemon cares about:

  - HTTPChecker: probes a provider base URL (RRSM, ESM) for a 2xx/3xx
    response.
  - TCPChecker: probes a host:port, e.g. the configured SMTP relay.
  - ExecChecker: runs a host command and inspects its exit code, e.g.
    invoking the FinDer engine binary or the shake-map command with a
    flag that exits immediately without doing real work.

All three implement Checker:

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

# Hysteresis

Status tracks consecutive successes/failures and only flips Healthy after
Config.Retries consecutive failures, so a single dropped provider request
does not flap a component between healthy and unhealthy on every poll.

# Monitor

Monitor ties a set of named Probes to pkg/metrics.RegisterComponent:

	mon := health.NewMonitor(
		health.NewProbe("rrsm", health.NewHTTPChecker(rrsmBaseURL), cfg),
		health.NewProbe("esm", health.NewHTTPChecker(esmBaseURL), cfg),
		health.NewProbe("smtp", health.NewTCPChecker(smtpAddr), cfg),
	)
	go mon.Run(ctx)

Each probe runs on its own interval and goroutine. "storage", "scheduler"
and "engine" are registered directly by the daemon's composition root
rather than through a Checker, since their health is derived from
internal state (store open, poll loop alive, last engine run outcome)
rather than an external probe.
*/
package health
