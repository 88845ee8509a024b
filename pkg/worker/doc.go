// Package worker implements the per-row follow-up pipeline: fetch peak
// motion from RRSM and ESM, merge and format it, run the rupture-detection
// engine, and emit the result, reporting back to the tracker at each
// outcome. Worker implements scheduler.Processor, so the scheduler never
// depends on this package directly.
package worker
