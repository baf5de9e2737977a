// Package clock provides the wrapping millisecond counter every wait in the
// node is measured against.
//
// The counter is a uint32 and wraps after roughly 49.7 days. All elapsed
// time must be computed with Elapsed, which relies on unsigned subtraction
// and therefore stays correct across a single wrap.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond counter.
type Clock interface {
	Millis() uint32
}

// Elapsed returns the milliseconds between since and now, modulo 2^32.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Reached reports whether d has passed since the given timestamp.
func Reached(c Clock, since uint32, d time.Duration) bool {
	return Elapsed(c.Millis(), since) >= Millis(d)
}

// Millis converts a duration to whole milliseconds, saturating at the
// counter range.
func Millis(d time.Duration) uint32 {
	ms := d / time.Millisecond
	if ms <= 0 {
		return 0
	}
	if ms > 1<<32-1 {
		return 1<<32 - 1
	}
	return uint32(ms)
}

// System counts milliseconds since it was created using the runtime's
// monotonic clock.
type System struct {
	start time.Time
}

// NewSystem returns a System clock starting at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start) / time.Millisecond)
}

// Manual is a Clock that only moves when told to. It is meant for tests
// that step state machines deterministically.
type Manual struct {
	now atomic.Uint32
}

// NewManual returns a Manual clock reading start.
func NewManual(start uint32) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

func (m *Manual) Millis() uint32 { return m.now.Load() }

// Set moves the clock to an absolute reading.
func (m *Manual) Set(ms uint32) { m.now.Store(ms) }

// Advance moves the clock forward by d, wrapping like the hardware counter.
func (m *Manual) Advance(d time.Duration) { m.now.Add(Millis(d)) }
