// Package counter holds the raw click tally from the flow meter.
// The GPIO edge handler increments it; the control loop drains it
// once per tick. No locks — the increment path must never block
// the edge-event goroutine.
package counter

import "sync/atomic"

// Counter is a monotonic pulse counter shared between the GPIO edge
// handler (writer) and the control loop (reader).
type Counter struct {
	clicks atomic.Uint64

	// last is the baseline from the previous ReadAndAdvance call.
	// Owned by the control loop; never touched by Increment.
	last uint64
}

// Increment records one flow-meter pulse. Safe to call concurrently
// with ReadAndAdvance at arbitrary pulse rates.
func (c *Counter) Increment() {
	c.clicks.Add(1)
}

// ReadAndAdvance returns the number of pulses observed since the
// previous call and moves the baseline forward so no pulse is counted
// twice. Pulses arriving after the internal load belong to the next
// tick. Must only be called from the control loop.
func (c *Counter) ReadAndAdvance() uint32 {
	cur := c.clicks.Load()
	delta := cur - c.last
	c.last = cur
	return uint32(delta)
}

// Total returns the lifetime pulse count.
func (c *Counter) Total() uint64 {
	return c.clicks.Load()
}
