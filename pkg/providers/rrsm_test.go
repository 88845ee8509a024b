package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceylan/pyfinder-go/pkg/providers"
)

const rrsmFixture = `[
  {
    "event-id": "20240118_0000062",
    "network-code": "IT",
    "station-code": "ACC",
    "location-code": "00",
    "station-latitude": 40.0,
    "station-longitude": 28.0,
    "event-time": "2024-01-18T10:00:00Z",
    "sensor-channels": [
      {"channel-code": "HNZ", "pga-value": 5.0, "pgv-value": 0.2}
    ]
  }
]`

func TestRRSMFetchParsesPeakMotionJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20240118_0000062", r.URL.Query().Get("eventid"))
		w.Write([]byte(rrsmFixture))
	}))
	defer server.Close()

	fetcher := providers.NewRRSM(server.URL, server.Client())
	readings, err := fetcher.Fetch(context.Background(), providers.QueryParams{EventID: "20240118_0000062"})
	require.NoError(t, err)
	require.Len(t, readings, 1)

	r := readings[0]
	assert.Equal(t, "IT", r.Network)
	assert.Equal(t, "ACC", r.Station)
	assert.Equal(t, "HNZ", r.Channel)
	assert.Equal(t, 5.0, r.PGA)
	assert.Equal(t, "RRSM", fetcher.Name())
}

func TestRRSMFetchRejectsMissingEventID(t *testing.T) {
	fetcher := providers.NewRRSM("", nil)
	_, err := fetcher.Fetch(context.Background(), providers.QueryParams{})
	assert.Error(t, err)
}

func TestRRSMFetchSurfacesTransportErrorOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := providers.NewRRSM(server.URL, server.Client())
	_, err := fetcher.Fetch(context.Background(), providers.QueryParams{EventID: "20240118_0000062"})
	assert.Error(t, err)
}
