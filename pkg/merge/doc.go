// Package merge turns per-provider peak-ground-acceleration channel
// readings into the single station list the rupture-detection engine
// consumes: one row per station (the channel with the largest |PGA|),
// normalized to cm/s², merged across providers with ESM taking priority
// over RRSM on overlapping stations, and rendered into the engine's plain
// text input format.
package merge
