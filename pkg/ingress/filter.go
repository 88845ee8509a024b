package ingress

import "strings"

// RegionFilter decides whether an alert's flynn_region and magnitude clear
// the configured bar. An empty TargetRegions list, or one containing
// "world" or "all" (case-insensitive), disables the region check
// entirely so an operator can run unfiltered without special-casing the
// config shape.
type RegionFilter struct {
	TargetRegions []string
	MinMagnitude  float64
}

// Matches reports whether region/magnitude pass the filter, and a short
// reason string useful for a log line either way.
func (f RegionFilter) Matches(region string, magnitude float64) (bool, string) {
	if magnitude < f.MinMagnitude {
		return false, "magnitude below threshold"
	}
	if f.regionDisabled() {
		return true, "region filter disabled"
	}
	lowerRegion := strings.ToLower(region)
	for _, target := range f.TargetRegions {
		if strings.Contains(lowerRegion, strings.ToLower(target)) {
			return true, "region matched"
		}
	}
	return false, "region did not match any target"
}

func (f RegionFilter) regionDisabled() bool {
	if len(f.TargetRegions) == 0 {
		return true
	}
	for _, r := range f.TargetRegions {
		lower := strings.ToLower(strings.TrimSpace(r))
		if lower == "world" || lower == "all" {
			return true
		}
	}
	return false
}
