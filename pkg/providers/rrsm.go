package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/merge"
	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// RRSM queries the ORFEUS Raw Rapid Seismic Monitoring peak-motion
// endpoint, which returns event and per-station amplitude data in a
// single JSON response keyed by event id:
//
//	http://orfeus-eu.org/odcws/rrsm/1/peak-motion?eventid=20240118_0000062
const rrsmDefaultBaseURL = "http://orfeus-eu.org/odcws/rrsm/1/peak-motion"

// rrsmURLBuilder builds the peak-motion query URL for one event.
type rrsmURLBuilder struct {
	BaseURL string
}

func (b rrsmURLBuilder) BuildURL(params QueryParams) (string, error) {
	base := b.BaseURL
	if base == "" {
		base = rrsmDefaultBaseURL
	}
	q := url.Values{}
	q.Set("eventid", params.EventID)
	return fmt.Sprintf("%s?%s", base, q.Encode()), nil
}

// rrsmOptionValidator requires only an event id: RRSM's peak-motion
// endpoint is keyed entirely by catalog event id, not by location.
type rrsmOptionValidator struct{}

func (rrsmOptionValidator) Validate(params QueryParams) error {
	if params.EventID == "" {
		return &perrors.ConfigError{Op: "rrsm.validate", Err: fmt.Errorf("missing event id")}
	}
	return nil
}

// rrsmStation is one entry of the peak-motion event-list. RRSM repeats
// the event-level fields on every station, so callers only read the
// station and channel fields here.
type rrsmStation struct {
	StationLatitude  float64       `json:"station-latitude"`
	StationLongitude float64       `json:"station-longitude"`
	NetworkCode      string        `json:"network-code"`
	StationCode      string        `json:"station-code"`
	LocationCode     string        `json:"location-code"`
	EventTime        string        `json:"event-time"`
	SensorChannels   []rrsmChannel `json:"sensor-channels"`
}

type rrsmChannel struct {
	ChannelCode string  `json:"channel-code"`
	PGAValue    float64 `json:"pga-value"`
}

// rrsmResponseParser parses the peak-motion JSON body into channel
// readings, one per (station, channel) pair. PGA arrives already in
// cm/s², RRSM's native unit.
type rrsmResponseParser struct{}

func (rrsmResponseParser) Parse(body []byte) ([]merge.ChannelReading, error) {
	var stations []rrsmStation
	if err := json.Unmarshal(body, &stations); err != nil {
		return nil, &perrors.ParseError{Source: "rrsm.peak-motion", Err: err}
	}

	readings := make([]merge.ChannelReading, 0, len(stations))
	for _, s := range stations {
		var ts time.Time
		if t, err := time.Parse(time.RFC3339, s.EventTime); err == nil {
			ts = t
		}
		for _, c := range s.SensorChannels {
			readings = append(readings, merge.ChannelReading{
				Network:   s.NetworkCode,
				Station:   s.StationCode,
				Location:  s.LocationCode,
				Channel:   c.ChannelCode,
				Lat:       s.StationLatitude,
				Lon:       s.StationLongitude,
				PGA:       c.PGAValue,
				Timestamp: ts,
			})
		}
	}
	return readings, nil
}

// NewRRSM builds the RRSM Fetcher: a Client composing the peak-motion
// URL builder, JSON parser and event-id validator behind a plain
// net/http round trip.
func NewRRSM(baseURL string, httpClient *http.Client) Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		ProviderName: "RRSM",
		URLBuilder:   rrsmURLBuilder{BaseURL: baseURL},
		Parser:       rrsmResponseParser{},
		Validator:    rrsmOptionValidator{},
		RoundTrip:    httpRoundTrip(httpClient, "RRSM"),
	}
}

// httpRoundTrip is the RoundTrip collaborator shared by concrete
// provider clients: a GET request that surfaces non-2xx responses and
// transport failures as TransportError.
func httpRoundTrip(client *http.Client, provider string) func(ctx context.Context, url string) ([]byte, error) {
	return func(ctx context.Context, target string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, &perrors.TransportError{Provider: provider, Op: "build-request", Err: err}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, &perrors.TransportError{Provider: provider, Op: "round-trip", Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &perrors.TransportError{Provider: provider, Op: "read-body", Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &perrors.TransportError{
				Provider: provider,
				Op:       "round-trip",
				Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
		return body, nil
	}
}
