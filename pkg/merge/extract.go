package merge

import (
	"math"
	"strings"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/types"
)

// gInCMPerS2 is standard gravity expressed in cm/s², used to convert ESM's
// %g peak-acceleration values.
const gInCMPerS2 = 980.665

// PGAMinCMS2 and PGAMaxCMS2 bound plausible peak ground acceleration
// readings; anything outside this range is almost certainly a sensor
// glitch or a unit-conversion bug upstream. Expressed here in cm/s²
// (1e-5 m/s² and 4g respectively).
const (
	PGAMinCMS2 = 1e-5 * 100
	PGAMaxCMS2 = 4 * 9.806 * 100
)

// ChannelReading is one raw peak-acceleration observation as reported by
// a provider, before per-station reduction. PGA is in the provider's
// native unit (RRSM: cm/s², ESM: %g).
type ChannelReading struct {
	Network, Station, Location, Channel string
	Lat, Lon                            float64
	PGA                                 float64
	Timestamp                           time.Time
}

// ExtractStations reduces readings to one RawStation per station: the
// channel with the largest |PGA|, converted to cm/s², with leading-dot
// codes stripped, filtered to [PGAMinCMS2, PGAMaxCMS2].
func ExtractStations(provider string, readings []ChannelReading) []types.RawStation {
	best := make(map[string]types.RawStation)

	for _, r := range readings {
		pgaCMS2 := toCMPerS2(provider, r.PGA)
		if math.Abs(pgaCMS2) < PGAMinCMS2 || math.Abs(pgaCMS2) > PGAMaxCMS2 {
			continue
		}

		location, channel := splitChannelCode(stripLeadingDot(r.Channel))
		if location == "" {
			location = stripLeadingDot(r.Location)
		}

		station := types.RawStation{
			Lat:       r.Lat,
			Lon:       r.Lon,
			Network:   stripLeadingDot(r.Network),
			Station:   stripLeadingDot(r.Station),
			Location:  location,
			Channel:   channel,
			PGACMS2:   pgaCMS2,
			Timestamp: r.Timestamp,
			Source:    provider,
		}

		key := station.Network + "." + station.Station
		if existing, ok := best[key]; !ok || math.Abs(pgaCMS2) > math.Abs(existing.PGACMS2) {
			best[key] = station
		}
	}

	stations := make([]types.RawStation, 0, len(best))
	for _, s := range best {
		stations = append(stations, s)
	}
	return stations
}

func toCMPerS2(provider string, pga float64) float64 {
	if strings.EqualFold(provider, "ESM") {
		return pga * gInCMPerS2 * 0.01
	}
	return pga
}

func stripLeadingDot(code string) string {
	return strings.TrimPrefix(code, ".")
}

// splitChannelCode splits a dotted channel code into (location, channel):
// some providers fold the location code into the channel field as
// "LOC.CHA" instead of reporting it separately. Returns an empty location
// when code carries no dot, leaving the caller's own location untouched.
func splitChannelCode(code string) (location, channel string) {
	parts := strings.SplitN(code, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", code
}
