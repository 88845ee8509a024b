package ingress

import (
	"sync"
	"time"
)

// dedupWindow suppresses re-dispatch of the exact same (id, lastupdate)
// pair within window, since EMSC occasionally resends an identical
// message after a reconnect.
type dedupWindow struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
}

func newDedupWindow(window time.Duration) *dedupWindow {
	return &dedupWindow{seen: make(map[string]time.Time), window: window}
}

// Seen reports whether key was already recorded within the window as of
// now, and records it either way (refreshing its expiry).
func (d *dedupWindow) Seen(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evict(now)

	_, dup := d.seen[key]
	d.seen[key] = now.Add(d.window)
	return dup
}

func (d *dedupWindow) evict(now time.Time) {
	for k, expiry := range d.seen {
		if expiry.Before(now) {
			delete(d.seen, k)
		}
	}
}
