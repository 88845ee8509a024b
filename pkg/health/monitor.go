package health

import (
	"context"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/metrics"
)

// Probe pairs a named Checker with the Status that tracks its hysteresis,
// so a single flaky check doesn't immediately flip a component unhealthy.
type Probe struct {
	Name    string
	Checker Checker
	Config  Config
	status  *Status
}

// NewProbe builds a Probe with a fresh Status.
func NewProbe(name string, checker Checker, config Config) *Probe {
	return &Probe{Name: name, Checker: checker, Config: config, status: NewStatus()}
}

// Monitor runs a fixed set of Probes on their own interval and mirrors each
// one's hysteresis-adjusted health into metrics.RegisterComponent, which
// backs the /health and /ready HTTP handlers.
type Monitor struct {
	probes []*Probe
}

// NewMonitor builds a Monitor over probes.
func NewMonitor(probes ...*Probe) *Monitor {
	return &Monitor{probes: probes}
}

// Run blocks, ticking every probe on its own Config.Interval, until ctx is
// canceled. Each probe runs in its own goroutine so a slow HTTP check
// against one provider never delays the SMTP TCP check.
func (m *Monitor) Run(ctx context.Context) {
	for _, p := range m.probes {
		go m.runProbe(ctx, p)
	}
	<-ctx.Done()
}

func (m *Monitor) runProbe(ctx context.Context, p *Probe) {
	interval := p.Config.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	if p.Config.StartPeriod > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Config.StartPeriod):
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx, p)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, p)
		}
	}
}

func (m *Monitor) check(ctx context.Context, p *Probe) {
	timeout := p.Config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := p.Checker.Check(checkCtx)
	p.status.Update(result, p.Config)
	metrics.RegisterComponent(p.Name, p.status.Healthy, result.Message)
}
