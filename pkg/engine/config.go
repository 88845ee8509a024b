package engine

import (
	"os"
	"path/filepath"
	"text/template"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// configFileName matches the name the engine expects as its argv[0] config
// path companion in the working directory.
const configFileName = "finder_file.config"

// DefaultConfigTemplate mirrors the key/value line format the engine reads:
// one "KEY value" pair per line. DataFolder is the only field the engine
// itself requires; MagnitudeTrigger, StationDistanceKM and EventID are
// carried through for operator-facing config and post-run bookkeeping.
const DefaultConfigTemplate = `DATA_FOLDER {{.DataFolder}}
MAGNITUDE_TRIGGER {{.MagnitudeTrigger}}
STATION_DISTANCE_KM {{.StationDistanceKM}}
EVENT_ID {{.EventID}}
`

// ConfigParams fills DefaultConfigTemplate (or a caller-supplied override).
type ConfigParams struct {
	DataFolder        string
	MagnitudeTrigger  float64
	StationDistanceKM float64
	EventID           string
}

// WriteConfig renders tmplText with params and writes it to
// <workDir>/finder_file.config, returning the written path.
func WriteConfig(tmplText string, params ConfigParams, workDir string) (string, error) {
	tmpl, err := template.New("finder-config").Parse(tmplText)
	if err != nil {
		return "", &perrors.ConfigError{Op: "parse config template", Err: err}
	}

	path := filepath.Join(workDir, configFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", &perrors.ConfigError{Op: "create config file", Err: err}
	}
	defer f.Close()

	if err := tmpl.Execute(f, params); err != nil {
		return "", &perrors.ConfigError{Op: "render config template", Err: err}
	}
	return path, nil
}

// WriteDataFile writes the formatter's blob to <workDir>/data_0 in ASCII,
// matching the engine's expected input file name.
func WriteDataFile(workDir, blob string) (string, error) {
	path := filepath.Join(workDir, "data_0")
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		return "", &perrors.ConfigError{Op: "write data_0", Err: err}
	}
	return path, nil
}
