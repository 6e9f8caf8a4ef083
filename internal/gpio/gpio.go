// Package gpio provides the hardware surface with abstraction for
// testing: the flow-meter pulse input, the reset button, and the pump
// relay. The real implementation uses the Linux GPIO character
// device; fakes allow testing without hardware.
package gpio

// Default BCM pin numbers (wiringPi pins 0, 1, 2 on the original
// board).
const (
	DefaultPinFlow   = 17 // flow meter pulse input, rising edge
	DefaultPinRelay  = 18 // pump power relay output
	DefaultPinButton = 27 // reset button input, pull-up
)

// Button reads the reset button level. The button is wired active-low
// behind a pull-up; Pressed returns true when the raw line reads low.
type Button interface {
	Pressed() (bool, error)
}

// Relay drives the pump power relay. Energized allows flow;
// de-energized cuts it. Written only by the control loop.
type Relay interface {
	Set(energized bool) error
}
