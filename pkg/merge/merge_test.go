package merge_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceylan/pyfinder-go/pkg/merge"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

func TestExtractStationsKeepsMaxAbsChannelPerStation(t *testing.T) {
	now := time.Now()
	readings := []merge.ChannelReading{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNE", Lat: 42.1, Lon: 13.2, PGA: 10.0, Timestamp: now},
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNZ", Lat: 42.1, Lon: 13.2, PGA: -25.0, Timestamp: now},
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNN", Lat: 42.1, Lon: 13.2, PGA: 15.0, Timestamp: now},
	}

	stations := merge.ExtractStations("RRSM", readings)
	require.Len(t, stations, 1)
	assert.Equal(t, "HNZ", stations[0].Channel, "largest |PGA| channel must win")
	assert.Equal(t, -25.0, stations[0].PGACMS2)
}

func TestExtractStationsConvertsESMPercentGToCMS2(t *testing.T) {
	readings := []merge.ChannelReading{
		{Network: "IV", Station: "XYZ1", Location: "00", Channel: "HNZ", Lat: 1, Lon: 1, PGA: 5.0}, // 5%g
	}
	stations := merge.ExtractStations("ESM", readings)
	require.Len(t, stations, 1)
	assert.InDelta(t, 5.0*980.665*0.01, stations[0].PGACMS2, 1e-9)
}

func TestExtractStationsDropsOutOfRangePGA(t *testing.T) {
	readings := []merge.ChannelReading{
		{Network: "IV", Station: "TOO_SMALL", Channel: "HNZ", PGA: 1e-6},
		{Network: "IV", Station: "TOO_BIG", Channel: "HNZ", PGA: 5000},
		{Network: "IV", Station: "OK", Channel: "HNZ", PGA: 100},
	}
	stations := merge.ExtractStations("RRSM", readings)
	require.Len(t, stations, 1)
	assert.Equal(t, "OK", stations[0].Station)
}

func TestExtractStationsStripsLeadingDotFromCodes(t *testing.T) {
	readings := []merge.ChannelReading{
		{Network: "IV", Station: "ABC1", Location: ".", Channel: ".HNZ", PGA: 50},
	}
	stations := merge.ExtractStations("RRSM", readings)
	require.Len(t, stations, 1)
	assert.Equal(t, "", stations[0].Location)
	assert.Equal(t, "HNZ", stations[0].Channel)
}

func TestExtractStationsSplitsLocationFromDottedChannelCode(t *testing.T) {
	readings := []merge.ChannelReading{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "10.HNZ", PGA: 50},
	}
	stations := merge.ExtractStations("RRSM", readings)
	require.Len(t, stations, 1)
	assert.Equal(t, "10", stations[0].Location, "location folded into the channel field wins over the reported location")
	assert.Equal(t, "HNZ", stations[0].Channel)
}

func TestMergeESMOverwritesRRSMOnSameKey(t *testing.T) {
	rrsm := []types.RawStation{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNZ", PGACMS2: 10, Source: "RRSM"},
	}
	esm := []types.RawStation{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNZ", PGACMS2: 20, Source: "ESM"},
	}

	merged := merge.Merge(rrsm, esm)
	require.Len(t, merged, 1)
	assert.Equal(t, "ESM", merged[0].Source)
	assert.Equal(t, 20.0, merged[0].PGACMS2)
}

func TestMergeFallsBackToCoordinateKeyWhenCodesIncomplete(t *testing.T) {
	rrsm := []types.RawStation{
		{Lat: 42.12345, Lon: 13.54321, PGACMS2: 10, Source: "RRSM"},
	}
	esm := []types.RawStation{
		{Lat: 42.12349, Lon: 13.54322, PGACMS2: 30, Source: "ESM"}, // rounds to same 4dp key
	}

	merged := merge.Merge(rrsm, esm)
	require.Len(t, merged, 1)
	assert.Equal(t, "ESM", merged[0].Source)
}

func TestMergeSortsByPGADescending(t *testing.T) {
	rrsm := []types.RawStation{
		{Network: "IV", Station: "A", Location: "00", Channel: "HNZ", PGACMS2: 5},
		{Network: "IV", Station: "B", Location: "00", Channel: "HNZ", PGACMS2: 50},
		{Network: "IV", Station: "C", Location: "00", Channel: "HNZ", PGACMS2: 25},
	}
	merged := merge.Merge(rrsm, nil)
	require.Len(t, merged, 3)
	assert.Equal(t, "B", merged[0].Station)
	assert.Equal(t, "C", merged[1].Station)
	assert.Equal(t, "A", merged[2].Station)
}

func TestMergeIsIdempotentOnRepeatedInput(t *testing.T) {
	rrsm := []types.RawStation{
		{Network: "IV", Station: "A", Location: "00", Channel: "HNZ", PGACMS2: 5},
	}
	first := merge.Merge(rrsm, nil)
	second := merge.Merge(first, nil)
	assert.Equal(t, first, second)
}

func TestFormatEngineInputLiveModeIncludesSNCLAndEpoch(t *testing.T) {
	event := types.FinderEvent{OriginTimeEpoch: 1700000000, Lat: 42.5, Lon: 13.1, DepthKM: 8, Magnitude: 6.0}
	stations := []types.RawStation{
		{Network: "IV", Station: "ABC1", Location: "00", Channel: "HNZ", Lat: 42.4, Lon: 13.0, PGACMS2: 100},
	}

	out := merge.FormatEngineInput(event, stations, true)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3) // header + synthetic + 1 station

	assert.True(t, strings.HasPrefix(lines[0], "# 1700000000 0"))
	assert.Contains(t, lines[1], "XX.NONE.00.HNZ")
	assert.Contains(t, lines[2], "IV.ABC1.00.HNZ")
}

func TestFormatEngineInputNonLiveModeUsesLog10(t *testing.T) {
	event := types.FinderEvent{OriginTimeEpoch: 1700000000, Lat: 42.5, Lon: 13.1, DepthKM: 8, Magnitude: 6.0}
	stations := []types.RawStation{
		{Lat: 42.4, Lon: 13.0, PGACMS2: 100},
	}

	out := merge.FormatEngineInput(event, stations, false)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	fields := strings.Fields(lines[2])
	require.Len(t, fields, 3, "non-live station row must be lat lon log10(pga) only")
}

func TestFormatEngineInputEpicenterPGAUsesObservedWhenHigher(t *testing.T) {
	event := types.FinderEvent{OriginTimeEpoch: 1700000000, Lat: 0, Lon: 0, DepthKM: 10, Magnitude: 3.0}
	stations := []types.RawStation{
		{PGACMS2: 1000}, // far above what a magnitude-3 prediction would give
	}

	out := merge.FormatEngineInput(event, stations, true)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 5)
	assert.Equal(t, "1200.000", fields[4], "epicenter PGA must be max(predicted, 1.2x observed max)")
}
