package gate

import (
	"sync"
	"time"

	"github.com/oshokin/ghost-host/internal/domain/performance"
)

// Debouncer filters repeated edges per input channel.
type Debouncer struct {
	// window is the minimum distance between two accepted edges on one channel.
	window time.Duration
	// last holds the instant of the last accepted edge per channel.
	last map[performance.TriggerSource]time.Time
	// mu protects last.
	mu sync.Mutex
}

// NewDebouncer creates a Debouncer with the provided window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		last:   make(map[performance.TriggerSource]time.Time, len(performance.SensorChannels())),
	}
}

// OnEdge returns true when the edge on channel is at least one window away from
// the previously accepted one, and records it as the new reference.
func (d *Debouncer) OnEdge(channel performance.TriggerSource, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.last[channel]; ok && now.Sub(last) < d.window {
		return false
	}

	d.last[channel] = now

	return true
}

// Reset forgets every channel.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.last)
}
