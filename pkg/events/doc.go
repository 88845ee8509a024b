/*
Package events provides an in-memory broker that fans one alert feed out
to multiple independent subscribers.

The ingress package owns exactly one feed reader (the file replay source
under --test); the ingress Dispatcher, which applies the region filter and
its own dedup window before calling the tracker, subscribes to the broker
instead of being wired to the feed directly. A slow or stalled subscriber
drops events rather than stalling the feed reader; Publish itself waits
only when the broker's 100-event main buffer is full, until Stop.

# Event Flow

Publish:
 1. Feed reader calls broker.Publish(event)
 2. Event added to the main channel (waits while its buffer is full)
 3. Broadcast loop receives the event
 4. Event sent to every subscriber channel
 5. Full subscriber buffers skip that event rather than block

Subscribe:
 1. Subscriber calls broker.Subscribe()
 2. A buffered channel is registered and returned
 3. Subscriber ranges over it in its own goroutine until Unsubscribe

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for evt := range sub {
			// handle evt.Alert
		}
	}()

	broker.Publish(&events.AlertEvent{ID: alert.UNID, Action: events.ActionCreate, Alert: alert})
*/
package events
