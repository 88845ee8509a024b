package merge

import "math"

// PredictedPGA returns a deterministic estimate of epicentral peak ground
// acceleration (cm/s²) from magnitude and depth. This is a stand-in
// attenuation model, not a seismologically validated one: the upstream
// formula it replaces was not recovered from the source this project was
// distilled from. It exists only to give the synthetic epicenter row in
// the engine input a plausible, monotonic-in-magnitude value when no
// observed station data clears it.
func PredictedPGA(magnitude, depthKM float64) float64 {
	if depthKM <= 0 {
		depthKM = 10
	}
	// log10(PGA) grows with magnitude and falls off with hypocentral
	// distance; at the epicenter that distance is just depth.
	logPGA := 0.5*magnitude - 0.9*math.Log10(depthKM) - 0.5
	return math.Pow(10, logPGA)
}
