package ingress

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/events"
	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// replayRecord is the on-disk shape of one captured alert: the same
// action/alert pair the live feed would have produced.
type replayRecord struct {
	Action events.Action      `json:"action"`
	Alert  types.AlertRecord  `json:"alert"`
}

// FileReplaySource reads a JSON-lines file of captured alert feed
// messages and publishes them to a broker, for use under --test instead
// of a live feed connection. Pace controls the delay between successive
// publishes; zero replays as fast as the broker can accept them.
type FileReplaySource struct {
	Path string
	Pace time.Duration
}

func NewFileReplaySource(path string, pace time.Duration) *FileReplaySource {
	return &FileReplaySource{Path: path, Pace: pace}
}

func (f *FileReplaySource) Run(broker *events.Broker, done <-chan struct{}) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return &perrors.ConfigError{Op: "open replay file", Err: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec replayRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return &perrors.ParseError{Source: f.Path, Err: err}
		}

		if !first && f.Pace > 0 {
			select {
			case <-time.After(f.Pace):
			case <-done:
				return nil
			}
		}
		first = false

		broker.Publish(&events.AlertEvent{
			ID:     rec.Alert.UNID,
			Action: rec.Action,
			Alert:  rec.Alert,
		})

		select {
		case <-done:
			return nil
		default:
		}
	}
	return scanner.Err()
}
