package debounce

import (
	"sync"
	"time"
)

// DefaultWindow matches the pause a user takes after finishing a rename or a
// custom fill value before expecting it to stick.
const DefaultWindow = 1500 * time.Millisecond

// Debouncer coalesces rapid calls per key into one trailing invocation.
// Scheduling a key again before its window elapses cancels the pending run
// and restarts the clock, so only the final value in a burst is flushed.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
	closed bool
}

// New creates a debouncer. A non-positive window falls back to
// DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule queues fn to run after the window, replacing any pending run for
// the same key. fn runs on a timer goroutine.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Flush runs a pending key immediately instead of waiting out the window.
// Returns false when nothing was pending.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	timer, ok := d.timers[key]
	if ok {
		delete(d.timers, key)
	}
	d.mu.Unlock()
	if !ok {
		return false
	}
	// Reset to zero fires the stored func almost immediately; stopping and
	// not rescheduling would lose the write.
	if timer.Stop() {
		timer.Reset(0)
	}
	return true
}

// Cancel drops a pending run without executing it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
	d.mu.Unlock()
}

// Pending reports whether a run is queued for the key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Close cancels all pending runs; subsequent Schedule calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
	d.mu.Unlock()
}
