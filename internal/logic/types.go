// Package logic contains pure business logic for flow monitoring.
// This package has NO external dependencies (no GPIO, files, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// Phase represents the controller's position in the flow episode
// state machine.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseCounting  Phase = "COUNTING"
	PhaseTriggered Phase = "TRIGGERED"
)

// Status is the first field of a persisted status record.
type Status string

const (
	StatusStarted Status = "started"
	StatusStopped Status = "stopped"
)

// Reason is the second field of a persisted status record.
type Reason string

const (
	ReasonStartup  Reason = "startup"
	ReasonButton   Reason = "button"
	ReasonSignal   Reason = "signal"
	ReasonVolume   Reason = "volume"
	ReasonTime     Reason = "time"
	ReasonShutdown Reason = "shutdown"
)

// Record is one status transition, written durably on every phase
// change that flips the relay.
type Record struct {
	Status Status
	Reason Reason
}

// Config holds the thresholds the controller applies each tick.
// It is replaced wholesale on reload, never mutated in place.
type Config struct {
	// ClicksPerLitre converts meter pulses to litres. Must be > 0.
	ClicksPerLitre uint32
	// MaxLitres is the volume ceiling for one flow episode.
	MaxLitres uint32
	// ResetPeriod is the quiescent time after which a stalled
	// episode silently returns to idle.
	ResetPeriod time.Duration
	// TimeLimit is the maximum duration one episode may run.
	TimeLimit time.Duration
	// Verbosity gates diagnostic output.
	Verbosity int
}

// EventKind identifies an asynchronous control request.
type EventKind int

const (
	EventReset EventKind = iota
	EventDumpStats
	EventEmergencyStop
)

// ResetSource records what requested a reset.
type ResetSource string

const (
	ResetButton ResetSource = "button"
	ResetSignal ResetSource = "signal"
)

// Event is a control request raised outside the loop and consumed
// exactly once by the next tick.
type Event struct {
	Kind   EventKind
	Source ResetSource // set for EventReset only
}

// RelayCmd is the controller's instruction to the relay actuator.
type RelayCmd int

const (
	RelayNone RelayCmd = iota // leave the relay as it is
	RelayOn                   // energize (allow flow)
	RelayOff                  // de-energize (cut flow)
)

// Input is one tick's view of the outside world.
type Input struct {
	// Delta is the pulse count drained from the counter this tick.
	Delta uint32
	// ButtonPressed is the level-read state of the reset button.
	ButtonPressed bool
	// Events are the control events drained from the queue, already
	// in dispatch order.
	Events []Event
	// Time is the tick timestamp.
	Time time.Time
}

// Output is what the control loop must apply after a tick.
type Output struct {
	Relay RelayCmd
	// Records to persist, in order. At most one start and one stop
	// can occur in a single tick.
	Records []Record
	// DumpStats is set when a stats dump was requested this tick.
	DumpStats bool
}

// Stats is a point-in-time snapshot for diagnostics.
type Stats struct {
	Now            time.Time
	Phase          Phase
	FirstClickTime time.Time
	LastClickTime  time.Time
	EpisodeClicks  uint32
	EpisodeLitres  uint32
	TotalClicks    uint64
	TotalLitres    uint64
}
