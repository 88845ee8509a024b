package engine

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// ParseOutput reads the engine's three output files from
// <workDir>/temp_data/<engineEventID>/ and assembles a FinderSolution.
// Any malformed file is a fatal ParseError for this run.
func ParseOutput(workDir, engineEventID, catalogEventID string) (*types.FinderSolution, error) {
	outDir := filepath.Join(workDir, "temp_data", engineEventID)

	event, err := parseCoreInfo(filepath.Join(outDir, "core_info_0"))
	if err != nil {
		return nil, err
	}

	rupture, err := parseRuptureList(filepath.Join(outDir, "finder_rupture_list_0"))
	if err != nil {
		return nil, err
	}

	channels, err := parseDataFile(filepath.Join(outDir, "data_0"))
	if err != nil {
		return nil, err
	}

	event.CatalogEventID = catalogEventID
	event.EngineEventID = engineEventID

	return &types.FinderSolution{
		Event:          event,
		Rupture:        rupture,
		Channels:       channels,
		CatalogEventID: catalogEventID,
		EngineEventID:  engineEventID,
	}, nil
}

func openLines(path string) (*bufio.Scanner, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &perrors.ParseError{Source: filepath.Base(path), Err: err}
	}
	return bufio.NewScanner(f), f, nil
}

// parseCoreInfo reads the 4-line core_info_0: origin epoch, magnitude,
// "lat lon", signed depth (absolute value taken).
func parseCoreInfo(path string) (types.FinderEvent, error) {
	var event types.FinderEvent

	scanner, f, err := openLines(path)
	if err != nil {
		return event, err
	}
	defer f.Close()

	lines := make([]string, 0, 4)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if len(lines) < 4 {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("expected 4 lines, got %d", len(lines))}
	}

	epoch, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("origin epoch: %w", err)}
	}
	event.OriginTimeEpoch = epoch

	mag, err := strconv.ParseFloat(lines[1], 64)
	if err != nil {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("magnitude: %w", err)}
	}
	event.Magnitude = mag

	latLon := strings.Fields(lines[2])
	if len(latLon) != 2 {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("lat/lon line: %q", lines[2])}
	}
	event.Lat, err = strconv.ParseFloat(latLon[0], 64)
	if err != nil {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("lat: %w", err)}
	}
	event.Lon, err = strconv.ParseFloat(latLon[1], 64)
	if err != nil {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("lon: %w", err)}
	}

	depth, err := strconv.ParseFloat(lines[3], 64)
	if err != nil {
		return event, &perrors.ParseError{Source: "core_info_0", Err: fmt.Errorf("depth: %w", err)}
	}
	event.DepthKM = math.Abs(depth)

	return event, nil
}

// parseRuptureList reads finder_rupture_list_0: a point count followed by
// that many "lat lon depth" lines.
func parseRuptureList(path string) (types.FinderRupture, error) {
	var rupture types.FinderRupture

	scanner, f, err := openLines(path)
	if err != nil {
		return rupture, err
	}
	defer f.Close()

	if !scanner.Scan() {
		return rupture, &perrors.ParseError{Source: "finder_rupture_list_0", Err: fmt.Errorf("missing point count")}
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return rupture, &perrors.ParseError{Source: "finder_rupture_list_0", Err: fmt.Errorf("point count: %w", err)}
	}

	points := make([]types.RupturePoint, 0, n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return rupture, &perrors.ParseError{Source: "finder_rupture_list_0", Err: fmt.Errorf("expected %d points, got %d", n, len(points))}
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			return rupture, &perrors.ParseError{Source: "finder_rupture_list_0", Err: fmt.Errorf("malformed point line: %q", scanner.Text())}
		}
		lat, err1 := strconv.ParseFloat(fields[0], 64)
		lon, err2 := strconv.ParseFloat(fields[1], 64)
		depth, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return rupture, &perrors.ParseError{Source: "finder_rupture_list_0", Err: fmt.Errorf("malformed point values: %q", scanner.Text())}
		}
		points = append(points, types.RupturePoint{Lat: lat, Lon: lon, DepthKM: depth})
	}
	rupture.Points = points
	return rupture, nil
}

// parseDataFile reads data_0: a header line, then one
// "lat lon sncl trigger pga" line per channel. The synthetic epicenter row
// is identified by its reserved SNCL and flagged IsArtificial.
func parseDataFile(path string) ([]types.FinderChannel, error) {
	scanner, f, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !scanner.Scan() {
		return nil, &perrors.ParseError{Source: "data_0", Err: fmt.Errorf("missing header line")}
	}

	var channels []types.FinderChannel
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, &perrors.ParseError{Source: "data_0", Err: fmt.Errorf("malformed channel line: %q", line)}
		}

		lat, err1 := strconv.ParseFloat(fields[0], 64)
		lon, err2 := strconv.ParseFloat(fields[1], 64)
		sncl := fields[2]
		triggered := fields[3] == "1"
		pga, err3 := strconv.ParseFloat(fields[4], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, &perrors.ParseError{Source: "data_0", Err: fmt.Errorf("malformed channel values: %q", line)}
		}

		parts := strings.Split(sncl, ".")
		channel := types.FinderChannel{
			Lat:          lat,
			Lon:          lon,
			PGACMS2:      pga,
			Triggered:    triggered,
			IsArtificial: sncl == "XX.NONE.00.HNZ",
		}
		if len(parts) == 4 {
			channel.Network, channel.Station, channel.Location, channel.Channel = parts[0], parts[1], parts[2], parts[3]
		}
		channels = append(channels, channel)
	}
	return channels, nil
}
