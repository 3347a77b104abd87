package jobs

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into one call after a quiet period.
// Each Trigger resets the timer; only the last function runs.
type Debouncer struct {
	interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules fn to run after the quiet window, cancelling any
// previously scheduled call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Stop cancels any pending call and releases the timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
