package config

import (
	"github.com/sceylan/pyfinder-go/pkg/policy"
)

// BuildRegistry returns the RRSM/ESM/EMSC policy registry for sc,
// substituting the default RRSM cadence with sc's override fields when
// RRSMDelaysMinutes is non-empty.
func (sc ScheduleConfig) BuildRegistry() *policy.Registry {
	if len(sc.RRSMDelaysMinutes) == 0 {
		return policy.NewDefaultRegistry()
	}

	reg := policy.NewDefaultRegistry()
	reg.Register(policy.NewSchedule(
		policy.ServiceRRSM,
		sc.RRSMDelaysMinutes,
		sc.RRSMDrift,
		sc.RRSMGrace,
		sc.RRSMMaxRetries,
	))
	return reg
}
