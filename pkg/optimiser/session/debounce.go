package session

import (
	"sync"
	"time"
)

// Debouncer runs at most one pending callback. Scheduling again before it
// fires replaces the pending callback and restarts the quiet period.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arms fn after the quiet period. fn receives the generation it was
// scheduled under; a callback that already passed the timer check can still be
// overtaken by a later Schedule, so callers compare it with Current under their own lock.
func (d *Debouncer) Schedule(fn func(gen uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a Stop that lost the race with the timer leaves us here with an old gen
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn(gen)
	})
}

// Current reports whether gen is still the latest Schedule and nothing cancelled it.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
