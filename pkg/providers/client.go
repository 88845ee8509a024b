package providers

import (
	"context"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/merge"
)

// QueryParams is everything a provider query needs to target one event at
// one elapsed-delay stage.
type QueryParams struct {
	EventID    string
	OriginTime time.Time
	Lat, Lon   float64
	Radius     float64 // search radius in km
}

// UrlBuilder builds the request URL for one query against a provider.
// The RRSM and ESM implementations (REST query strings) are in rrsm.go and
// esm.go.
type UrlBuilder interface {
	BuildURL(params QueryParams) (string, error)
}

// ResponseParser turns a provider's raw response body into channel
// readings. RRSM's JSON and ESM's XML parsers are in rrsm.go and esm.go.
type ResponseParser interface {
	Parse(body []byte) ([]merge.ChannelReading, error)
}

// OptionValidator checks that QueryParams is well-formed for a provider
// before a request is built, so a malformed event never reaches the wire.
type OptionValidator interface {
	Validate(params QueryParams) error
}

// Fetcher is the minimal surface a worker needs from a provider client:
// one round trip producing channel readings or an error. A concrete
// client composes a UrlBuilder, ResponseParser and OptionValidator behind
// this surface instead of inheriting from a shared base type.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, params QueryParams) ([]merge.ChannelReading, error)
}

// Client composes the three orthogonal capabilities into one Fetcher.
// Transport (the actual HTTP round trip) is supplied by RoundTrip, kept
// separate so tests can substitute a fake without a real network call.
type Client struct {
	ProviderName string
	URLBuilder   UrlBuilder
	Parser       ResponseParser
	Validator    OptionValidator
	RoundTrip    func(ctx context.Context, url string) ([]byte, error)
}

func (c *Client) Name() string { return c.ProviderName }

// Fetch validates params, builds the URL, performs the round trip, and
// parses the response. Retry policy lives in RetryFetch (retry.go); this
// method is a single, non-retried attempt.
func (c *Client) Fetch(ctx context.Context, params QueryParams) ([]merge.ChannelReading, error) {
	if err := c.Validator.Validate(params); err != nil {
		return nil, err
	}

	url, err := c.URLBuilder.BuildURL(params)
	if err != nil {
		return nil, err
	}

	body, err := c.RoundTrip(ctx, url)
	if err != nil {
		return nil, err
	}

	return c.Parser.Parse(body)
}
