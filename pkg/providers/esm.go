package providers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/merge"
	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// ESM queries the Engineering Strong-Motion shakemap web service's
// event_dat output, an unstyled XML stationlist:
//
//	https://esm-db.eu/esmws/shakemap/1/query?eventid=...&format=event_dat
const esmDefaultBaseURL = "https://esm-db.eu/esmws/shakemap/1/query"

type esmURLBuilder struct {
	BaseURL string
}

func (b esmURLBuilder) BuildURL(params QueryParams) (string, error) {
	base := b.BaseURL
	if base == "" {
		base = esmDefaultBaseURL
	}
	q := url.Values{}
	q.Set("eventid", params.EventID)
	q.Set("catalog", "EMSC")
	q.Set("format", "event_dat")
	return fmt.Sprintf("%s?%s", base, q.Encode()), nil
}

type esmOptionValidator struct{}

func (esmOptionValidator) Validate(params QueryParams) error {
	if params.EventID == "" {
		return &perrors.ConfigError{Op: "esm.validate", Err: fmt.Errorf("missing event id")}
	}
	return nil
}

// esmStationList mirrors the XML shape ESM returns for format=event_dat:
// a <stationlist created="..."> of <station netid code lat lon> each
// holding one or more <comp name> with an <acc value="..."/> child.
type esmStationList struct {
	XMLName xml.Name     `xml:"stationlist"`
	Created string       `xml:"created,attr"`
	Station []esmStation `xml:"station"`
}

type esmStation struct {
	NetID string    `xml:"netid,attr"`
	Code  string    `xml:"code,attr"`
	Lat   float64   `xml:"lat,attr"`
	Lon   float64   `xml:"lon,attr"`
	Comp  []esmComp `xml:"comp"`
}

type esmComp struct {
	Name string `xml:"name,attr"`
	Acc  esmAcc `xml:"acc"`
}

type esmAcc struct {
	Value float64 `xml:"value,attr"`
	Flag  int     `xml:"flag,attr"`
}

// esmResponseParser parses the event_dat XML into channel readings.
// PGA arrives as %g; conversion to cm/s² happens downstream in
// merge.ExtractStations, which looks at the "ESM" provider tag.
type esmResponseParser struct{}

func (esmResponseParser) Parse(body []byte) ([]merge.ChannelReading, error) {
	var list esmStationList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, &perrors.ParseError{Source: "esm.event_dat", Err: err}
	}

	var created time.Time
	if epoch, err := strconv.ParseInt(list.Created, 10, 64); err == nil {
		created = time.Unix(epoch, 0).UTC()
	}

	readings := make([]merge.ChannelReading, 0, len(list.Station))
	for _, s := range list.Station {
		for _, c := range s.Comp {
			if c.Acc.Flag != 0 {
				// Flagged (problematic) amplitude, skip.
				continue
			}
			readings = append(readings, merge.ChannelReading{
				Network:   s.NetID,
				Station:   s.Code,
				Channel:   c.Name,
				Lat:       s.Lat,
				Lon:       s.Lon,
				PGA:       c.Acc.Value,
				Timestamp: created,
			})
		}
	}
	return readings, nil
}

// NewESM builds the ESM Fetcher: a Client composing the shakemap
// event_dat URL builder, XML parser and event-id validator behind a
// plain net/http round trip.
func NewESM(baseURL string, httpClient *http.Client) Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		ProviderName: "ESM",
		URLBuilder:   esmURLBuilder{BaseURL: baseURL},
		Parser:       esmResponseParser{},
		Validator:    esmOptionValidator{},
		RoundTrip:    httpRoundTrip(httpClient, "ESM"),
	}
}
