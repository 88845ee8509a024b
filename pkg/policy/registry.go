package policy

import "time"

// Service name constants used as map keys throughout the pipeline.
const (
	ServiceRRSM = "RRSM"
	ServiceESM  = "ESM"
	ServiceEMSC = "EMSC"
)

// placeholderPolicy is a registered contract-preserving stand-in for a
// service this design does not yet query on a schedule (ESM and EMSC are
// fetched inline by the worker rather than polled independently, but the
// scheduler stays uniform if every known service name resolves to some
// Policy).
type placeholderPolicy struct{ name string }

func (p placeholderPolicy) Name() string { return p.name }
func (p placeholderPolicy) ShouldQuery(Meta, time.Time) (bool, string) {
	return false, "placeholder policy never schedules"
}
func (p placeholderPolicy) NextDelayMinutes(Meta, time.Time) *int  { return nil }
func (p placeholderPolicy) CurrentDelayMinutes(Meta, time.Time) int { return 0 }
func (p placeholderPolicy) IsTerminal(Meta, time.Time) bool         { return true }
func (p placeholderPolicy) ShouldRetryOnFailure(Meta) bool          { return false }
func (p placeholderPolicy) Delays() []int                           { return nil }

// Registry is a process-wide immutable mapping of service name to Policy.
type Registry struct {
	policies map[string]Policy
}

// DefaultRRSMSchedule matches spec.md §4.1's concrete RRSM cadence.
func DefaultRRSMSchedule() *Schedule {
	return NewSchedule(
		ServiceRRSM,
		[]int{0, 5, 15, 60, 180, 360, 1440, 2880},
		1*time.Minute,
		15*time.Minute,
		3,
	)
}

// NewDefaultRegistry builds the registry with the RRSM schedule and
// placeholder ESM/EMSC entries, matching spec.md §4.1.
func NewDefaultRegistry() *Registry {
	r := &Registry{policies: make(map[string]Policy)}
	r.Register(DefaultRRSMSchedule())
	r.Register(placeholderPolicy{name: ServiceESM})
	r.Register(placeholderPolicy{name: ServiceEMSC})
	return r
}

// Register adds or replaces the policy for p.Name() in the registry.
func (r *Registry) Register(p Policy) {
	r.policies[p.Name()] = p
}

// Get returns the policy registered for service, or nil if none.
func (r *Registry) Get(service string) Policy {
	return r.policies[service]
}

// All returns every registered policy, keyed by service name.
func (r *Registry) All() map[string]Policy {
	return r.policies
}
