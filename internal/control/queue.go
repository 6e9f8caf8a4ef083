// Package control carries asynchronous control requests into the
// control loop. Signal handlers and other async contexts may only
// raise flags here; the loop drains them once per tick. Everything is
// atomic so the raising side never blocks and never touches loop
// state.
package control

import (
	"sync/atomic"

	"github.com/sweeney/waterfuse/internal/logic"
)

// Queue is a fixed set of coalescing event flags. Raising an event
// that is already pending is a no-op; each pending event is delivered
// exactly once.
type Queue struct {
	reload atomic.Bool
	dump   atomic.Bool
	estop  atomic.Bool

	// reset holds the pending reset source: 0 none, 1 button, 2 signal.
	reset atomic.Uint32
}

const (
	resetNone   = 0
	resetButton = 1
	resetSignal = 2
)

// RaiseReload requests a config reload on the next tick.
func (q *Queue) RaiseReload() { q.reload.Store(true) }

// RaiseDumpStats requests a diagnostics dump on the next tick.
func (q *Queue) RaiseDumpStats() { q.dump.Store(true) }

// RaiseEmergencyStop requests an immediate relay cutoff on the next
// tick. The async context never writes the relay itself.
func (q *Queue) RaiseEmergencyStop() { q.estop.Store(true) }

// RaiseReset requests a reset on the next tick.
func (q *Queue) RaiseReset(src logic.ResetSource) {
	if src == logic.ResetButton {
		q.reset.Store(resetButton)
		return
	}
	q.reset.Store(resetSignal)
}

// DrainReload consumes a pending reload request. Reload is drained
// separately because applying it needs file IO the pure controller
// must not do.
func (q *Queue) DrainReload() bool {
	return q.reload.Swap(false)
}

// Drain consumes all pending controller events. Order is fixed:
// reset, stats dump, emergency stop — so a same-tick emergency stop
// is applied after a reset and wins.
func (q *Queue) Drain() []logic.Event {
	var events []logic.Event

	switch q.reset.Swap(resetNone) {
	case resetButton:
		events = append(events, logic.Event{Kind: logic.EventReset, Source: logic.ResetButton})
	case resetSignal:
		events = append(events, logic.Event{Kind: logic.EventReset, Source: logic.ResetSignal})
	}
	if q.dump.Swap(false) {
		events = append(events, logic.Event{Kind: logic.EventDumpStats})
	}
	if q.estop.Swap(false) {
		events = append(events, logic.Event{Kind: logic.EventEmergencyStop})
	}
	return events
}
