//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(pinFlow, pinButton, pinRelay int, onPulse func()) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pressed is not implemented on non-Linux platforms.
func (b *RealBoard) Pressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Set is not implemented on non-Linux platforms.
func (b *RealBoard) Set(energized bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
