// Package schedule provides trailing-edge debouncing and the per-channel
// update scheduler that coalesces bursts of graph mutations into single
// table refreshes and layout runs.
package schedule

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the debounce window used when none is given.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer collapses rapid triggers into one callback invocation on the
// trailing edge: only the last Trigger within the window fires.
type Debouncer struct {
	mu    sync.Mutex
	d     time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given window. A non-positive
// duration falls back to DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{d: d}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.d
}

// Trigger schedules fn to run after the window elapses, cancelling any
// previously pending invocation. fn runs on a timer goroutine.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.d, fn)
}

// Cancel drops any pending invocation.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
