package ingress

import "github.com/sceylan/pyfinder-go/pkg/events"

// AlertSource is the contract a feed reader fulfills: read the upstream
// alert channel and publish each message to broker until done is closed
// or the upstream connection ends. The real-time websocket listener that
// talks to the alert provider implements this in a deployment that has
// one; it is out of scope here. FileReplaySource implements it for
// --test runs.
type AlertSource interface {
	Run(broker *events.Broker, done <-chan struct{}) error
}
