package merge

import (
	"fmt"
	"math"
	"strings"

	"github.com/sceylan/pyfinder-go/pkg/types"
)

// syntheticSNCL is the SNCL the engine input format reserves for the
// artificial epicenter row (not a real station).
const syntheticSNCL = "XX.NONE.00.HNZ"

// FormatEngineInput renders merged stations into the engine's plain text
// input: a header line, a synthetic epicenter row, then one row per
// station sorted by PGA descending (the order Merge already returns them
// in). In live mode each row carries origin time and PGA in cm/s²; in
// non-live (archival/batch) mode it carries log10(PGA) instead, matching
// the two formats the engine accepts.
func FormatEngineInput(event types.FinderEvent, stations []types.RawStation, liveMode bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %d 0\n", event.OriginTimeEpoch)

	maxObserved := 0.0
	if len(stations) > 0 {
		maxObserved = stations[0].PGACMS2
	}
	epicenterPGA := math.Max(PredictedPGA(event.Magnitude, event.DepthKM), maxObserved*1.2)
	writeRow(&b, event.Lat, event.Lon, syntheticSNCL, event.OriginTimeEpoch, epicenterPGA, liveMode)

	for _, s := range stations {
		writeRow(&b, s.Lat, s.Lon, s.SNCL(), event.OriginTimeEpoch, s.PGACMS2, liveMode)
	}

	return b.String()
}

func writeRow(b *strings.Builder, lat, lon float64, sncl string, originEpoch int64, pgaCMS2 float64, liveMode bool) {
	if liveMode {
		fmt.Fprintf(b, "%.3f %.3f %s %d %.3f\n", lat, lon, sncl, originEpoch, pgaCMS2)
		return
	}
	fmt.Fprintf(b, "%.3f %.3f %.3f\n", lat, lon, math.Log10(pgaCMS2))
}
