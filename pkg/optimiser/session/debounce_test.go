package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerRunsOnceAfterQuietPeriod(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(40 * time.Millisecond)

	for i := 0; i < 3; i++ {
		d.Schedule(func(uint64) { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, d.Pending())
	assert.Zero(t, calls.Load())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20 * time.Millisecond)

	d.Schedule(func(uint64) { calls.Add(1) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerCurrent(t *testing.T) {
	d := NewDebouncer(time.Hour)

	d.Schedule(func(uint64) {})
	d.mu.Lock()
	first := d.gen
	d.mu.Unlock()
	assert.True(t, d.Current(first))

	d.Schedule(func(uint64) {})
	d.mu.Lock()
	second := d.gen
	d.mu.Unlock()
	assert.False(t, d.Current(first))
	assert.True(t, d.Current(second))

	d.Cancel()
	assert.False(t, d.Current(second))
}
