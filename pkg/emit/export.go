package emit

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// gravityCMS2 converts cm/s² to g for the station amplitude export.
const gravityCMS2 = 9.806

// AugmentedID names the export directory for one stage of one event:
// "<event_id>_t<delay_minutes_zero_padded_5>".
func AugmentedID(eventID string, delayMinutes int) string {
	return fmt.Sprintf("%s_t%05d", eventID, delayMinutes)
}

type earthquakeXML struct {
	XMLName   xml.Name `xml:"earthquake"`
	EventID   string   `xml:"event_id,attr"`
	ID        string   `xml:"id,attr"`
	NetID     string   `xml:"netid,attr"`
	Magnitude float64  `xml:"mag,attr"`
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Depth     float64  `xml:"depth,attr"`
	Time      string   `xml:"time,attr"`
	LocString string   `xml:"locstring,attr"`
	EventType string   `xml:"event_type,attr"`
}

// WriteEventXML writes event.xml: root <earthquake> metadata.
func WriteEventXML(dir string, event types.FinderEvent, catalogEventID string) (string, error) {
	doc := earthquakeXML{
		EventID:   catalogEventID,
		ID:        event.EngineEventID,
		NetID:     "FinDer",
		Magnitude: event.Magnitude,
		Lat:       event.Lat,
		Lon:       event.Lon,
		Depth:     event.DepthKM,
		Time:      time.Unix(event.OriginTimeEpoch, 0).UTC().Format("2006-01-02T15:04:05Z"),
		LocString: "FinDer Origin",
		EventType: "ACTUAL",
	}
	return writeXML(filepath.Join(dir, "event.xml"), doc)
}

type accXML struct {
	Value float64 `xml:"value,attr"`
	Flag  string  `xml:"flag,attr"`
}

type compXML struct {
	Acc accXML `xml:"acc"`
}

type stationXML struct {
	Code string  `xml:"code,attr"`
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Comp compXML `xml:"comp"`
}

type stationListXML struct {
	XMLName  xml.Name     `xml:"stationlist"`
	Created  string       `xml:"created,attr"`
	Xmlns    string       `xml:"xmlns,attr"`
	Stations []stationXML `xml:"station"`
}

// WriteEventDatXML writes event_dat.xml: one <station> per channel, PGA
// converted from cm/s² to g.
func WriteEventDatXML(dir string, channels []types.FinderChannel, now time.Time) (string, error) {
	doc := stationListXML{
		Created: now.UTC().Format("2006-01-02T15:04:05Z"),
		Xmlns:   "ch.ethz.sed.shakemap.usgs.xml",
	}
	for _, c := range channels {
		doc.Stations = append(doc.Stations, stationXML{
			Code: c.SNCL(),
			Lat:  c.Lat,
			Lon:  c.Lon,
			Comp: compXML{Acc: accXML{Value: c.PGACMS2 / gravityCMS2, Flag: "0"}},
		})
	}
	return writeXML(filepath.Join(dir, "event_dat.xml"), doc)
}

func writeXML(path string, doc any) (string, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &perrors.ParseError{Source: filepath.Base(path), Err: err}
	}
	out := append([]byte(xml.Header), body...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", &perrors.ConfigError{Op: "write " + filepath.Base(path), Err: err}
	}
	return path, nil
}

type geoJSONFeatureCollection struct {
	Type     string             `json:"type"`
	Features []geoJSONFeature   `json:"features"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Properties map[string]any         `json:"properties"`
	Geometry   geoJSONMultiPolygon    `json:"geometry"`
}

type geoJSONMultiPolygon struct {
	Type        string          `json:"type"`
	Coordinates [][][][3]float64 `json:"coordinates"`
}

// WriteRuptureJSON writes rupture.json: a GeoJSON FeatureCollection with
// one MultiPolygon feature whose ring is closed (first point repeated
// last) in lon/lat/depth order.
func WriteRuptureJSON(dir string, rupture types.FinderRupture, catalogEventID string) (string, error) {
	ring := make([][3]float64, 0, len(rupture.Points)+1)
	for _, p := range rupture.Points {
		ring = append(ring, [3]float64{p.Lon, p.Lat, p.DepthKM})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	doc := geoJSONFeatureCollection{
		Type: "FeatureCollection",
		Features: []geoJSONFeature{
			{
				Type:       "Feature",
				Properties: map[string]any{"event_id": catalogEventID},
				Geometry: geoJSONMultiPolygon{
					Type:        "MultiPolygon",
					Coordinates: [][][][3]float64{{ring}},
				},
			},
		},
	}

	path := filepath.Join(dir, "rupture.json")
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &perrors.ParseError{Source: "rupture.json", Err: err}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", &perrors.ConfigError{Op: "write rupture.json", Err: err}
	}
	return path, nil
}
