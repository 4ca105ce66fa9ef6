package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultCapacity = 20
	DefaultWindow   = 60 * time.Second
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

type Option func(*SlidingWindow)

func WithClock(clock Clock) Option {
	return func(l *SlidingWindow) {
		l.now = clock
	}
}

// entry is a fixed-capacity ring of accepted-request timestamps.
// head is the next write slot; count is the number of valid slots.
type entry struct {
	stamps []time.Time
	head   int
	count  int
}

// SlidingWindow accepts at most capacity requests per identity within any trailing window.
type SlidingWindow struct {
	mu        sync.Mutex
	capacity  int
	window    time.Duration
	now       Clock
	entries   map[string]*entry
	lastSweep time.Time
}

// NewSlidingWindow creates a limiter. Non-positive capacity or window fall back to the defaults.
func NewSlidingWindow(capacity int, window time.Duration, opts ...Option) *SlidingWindow {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &SlidingWindow{
		capacity: capacity,
		window:   window,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Allow records a request for identity and reports whether it is accepted.
func (l *SlidingWindow) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)
	l.maybeSweep(now, windowStart)

	e, ok := l.entries[identity]
	if !ok {
		e = &entry{stamps: make([]time.Time, l.capacity)}
		l.entries[identity] = e
	}

	// Full ring: the oldest slot decides in O(1) while it is still inside the window.
	if e.count == l.capacity {
		oldest := e.stamps[l.slot(e.head-e.count)]
		if oldest.After(windowStart) {
			return false
		}
	}

	inWindow := 0
	for i := 1; i <= e.count; i++ {
		if e.stamps[l.slot(e.head-i)].After(windowStart) {
			inWindow++
		}
	}
	if inWindow >= l.capacity {
		return false
	}

	e.stamps[e.head] = now
	e.head = l.slot(e.head + 1)
	if e.count < l.capacity {
		e.count++
	}
	return true
}

// Len returns the number of identities currently tracked.
func (l *SlidingWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *SlidingWindow) slot(i int) int {
	return ((i % l.capacity) + l.capacity) % l.capacity
}

// maybeSweep drops identities whose newest timestamp has left the window.
// It runs at most once per two window lengths and only on the request path.
func (l *SlidingWindow) maybeSweep(now, windowStart time.Time) {
	if now.Sub(l.lastSweep) < 2*l.window {
		return
	}
	l.lastSweep = now

	for identity, e := range l.entries {
		if e.count == 0 {
			delete(l.entries, identity)
			continue
		}
		newest := e.stamps[l.slot(e.head-1)]
		if !newest.After(windowStart) {
			delete(l.entries, identity)
		}
	}
}
