package dashboard

import (
	"sync"
	"time"
)

// AutocompleteDelay is how long after the last keystroke a lookup waits
// before hitting the network.
const AutocompleteDelay = 500 * time.Millisecond

// Debouncer runs only the last function scheduled within a burst. Each
// Trigger resets the pending timer, so rapid keystrokes cancel their
// predecessors and a single request goes out once typing pauses.
type Debouncer struct {
	delay time.Duration
	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the quiet period, cancelling any
// previously scheduled function that has not fired yet.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
