package logic

import "time"

// Controller is the flow-episode state machine. It consumes one Input
// per tick and emits relay commands and status records. All state is
// owned by the control loop; nothing here is safe for concurrent use.
type Controller struct {
	cfg   Config
	phase Phase

	firstClickTime time.Time
	lastClickTime  time.Time

	// episodeClicks accumulates pulses for the current episode and is
	// cleared on reset or stall. totalClicks is lifetime and never
	// cleared.
	episodeClicks uint32
	totalClicks   uint64
}

// NewController creates a controller in the idle phase.
func NewController(cfg Config, start time.Time) *Controller {
	if cfg.ClicksPerLitre == 0 {
		cfg.ClicksPerLitre = 1
	}
	return &Controller{
		cfg:            cfg,
		phase:          PhaseIdle,
		firstClickTime: start,
		lastClickTime:  start,
	}
}

// SetConfig swaps in a replacement config between ticks. Nothing else
// changes, so applying the same config twice is a no-op.
func (c *Controller) SetConfig(cfg Config) {
	if cfg.ClicksPerLitre == 0 {
		cfg.ClicksPerLitre = 1
	}
	c.cfg = cfg
}

// Config returns the active config snapshot.
func (c *Controller) Config() Config {
	return c.cfg
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Tick advances the state machine by one control-loop tick.
//
// Order within the tick: pulse accounting, then control events, then
// the threshold state machine. An emergency stop raised in the same
// tick as a reset wins.
func (c *Controller) Tick(in Input) Output {
	now := in.Time
	delta := in.Delta

	c.episodeClicks += delta
	c.totalClicks += uint64(delta)

	var out Output

	// Collect control events. The reset button is level-polled and
	// only honored while triggered; it takes precedence over a reset
	// signal raised the same tick.
	var reset bool
	var resetSource ResetSource
	var estop bool
	for _, ev := range in.Events {
		switch ev.Kind {
		case EventReset:
			reset = true
			resetSource = ev.Source
		case EventDumpStats:
			out.DumpStats = true
		case EventEmergencyStop:
			estop = true
		}
	}
	if c.phase == PhaseTriggered && in.ButtonPressed {
		reset = true
		resetSource = ResetButton
	}

	if reset {
		c.phase = PhaseIdle
		c.episodeClicks = 0
		c.firstClickTime = now
		c.lastClickTime = now
		out.Relay = RelayOn
		out.Records = append(out.Records, Record{StatusStarted, Reason(resetSource)})
		// Pulses arriving on the reset tick are discarded with the
		// episode; they must not start a new one this tick.
		delta = 0
	}

	if estop {
		if c.phase != PhaseTriggered {
			out.Records = append(out.Records, Record{StatusStopped, ReasonSignal})
		}
		c.phase = PhaseTriggered
		out.Relay = RelayOff
	}

	switch c.phase {
	case PhaseIdle:
		if delta > 0 {
			c.phase = PhaseCounting
			c.firstClickTime = now
			c.lastClickTime = now
		}

	case PhaseCounting:
		if delta == 0 {
			// Silent stall recovery: no record, no relay change.
			if now.Sub(c.lastClickTime) > c.cfg.ResetPeriod {
				c.phase = PhaseIdle
				c.episodeClicks = 0
			}
			break
		}

		c.lastClickTime = now
		elapsed := c.lastClickTime.Sub(c.firstClickTime)

		// Volume compares in the click domain so the trip lands one
		// click past the ceiling; volume wins a same-tick tie with
		// the time limit.
		var reason Reason
		if c.episodeClicks > c.cfg.MaxLitres*c.cfg.ClicksPerLitre {
			reason = ReasonVolume
		} else if elapsed > c.cfg.TimeLimit {
			reason = ReasonTime
		}
		if reason != "" {
			c.phase = PhaseTriggered
			out.Relay = RelayOff
			out.Records = append(out.Records, Record{StatusStopped, reason})
		}
	}

	return out
}

// Snapshot reports diagnostic counters. Reported litres use integer
// floor division of clicks, matching the original meter arithmetic.
func (c *Controller) Snapshot(now time.Time) Stats {
	return Stats{
		Now:            now,
		Phase:          c.phase,
		FirstClickTime: c.firstClickTime,
		LastClickTime:  c.lastClickTime,
		EpisodeClicks:  c.episodeClicks,
		EpisodeLitres:  c.episodeClicks / c.cfg.ClicksPerLitre,
		TotalClicks:    c.totalClicks,
		TotalLitres:    c.totalClicks / uint64(c.cfg.ClicksPerLitre),
	}
}
