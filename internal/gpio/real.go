//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard owns the three GPIO lines on actual hardware. Flow-meter
// rising edges are delivered to the onPulse callback from the
// character device's event goroutine; the callback must be async-safe
// (it only bumps an atomic counter).
type RealBoard struct {
	chip      *gpiocdev.Chip
	flowLine  *gpiocdev.Line
	buttonPin *gpiocdev.Line
	relayPin  *gpiocdev.Line
}

// NewRealBoard requests the flow, button and relay lines. The relay
// starts energized so flow is allowed from the moment the board is
// up. Fails if any line cannot be requested — the caller treats that
// as fatal before entering the control loop.
func NewRealBoard(pinFlow, pinButton, pinRelay int, onPulse func()) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	flowLine, err := chip.RequestLine(pinFlow,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onPulse() }))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request flow pin %d: %w", pinFlow, err)
	}

	// Button is active-low behind a pull-up, matching the original
	// wiring.
	buttonLine, err := chip.RequestLine(pinButton, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		flowLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pinButton, err)
	}

	relayLine, err := chip.RequestLine(pinRelay, gpiocdev.AsOutput(1))
	if err != nil {
		buttonLine.Close()
		flowLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pinRelay, err)
	}

	return &RealBoard{
		chip:      chip,
		flowLine:  flowLine,
		buttonPin: buttonLine,
		relayPin:  relayLine,
	}, nil
}

// Pressed returns true when the reset button reads low.
func (b *RealBoard) Pressed() (bool, error) {
	v, err := b.buttonPin.Value()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	return v == 0, nil
}

// Set drives the relay output: true energizes, false cuts power.
func (b *RealBoard) Set(energized bool) error {
	v := 0
	if energized {
		v = 1
	}
	if err := b.relayPin.SetValue(v); err != nil {
		return fmt.Errorf("write relay: %w", err)
	}
	return nil
}

// Close releases the GPIO lines. The relay line is left as an output
// holding its last value so a daemon restart does not glitch the
// pump.
func (b *RealBoard) Close() error {
	var errs []error

	if b.flowLine != nil {
		if err := b.flowLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close flow pin: %w", err))
		}
	}
	if b.buttonPin != nil {
		if err := b.buttonPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.relayPin != nil {
		if err := b.relayPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
