package gpio

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Levels contains scripted pressed values. Each call to Pressed
	// consumes the next one; the last repeats once exhausted.
	Levels []bool

	// index tracks current position in Levels
	index int

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given levels.
func NewFakeButton(levels ...bool) *FakeButton {
	return &FakeButton{Levels: levels}
}

// Pressed returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly. A fake
// with no levels configured reads released.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Levels) == 0 {
		return false, nil
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}

// FakeRelay records every Set call for test assertions.
type FakeRelay struct {
	// Energized is the current relay state.
	Energized bool

	// Writes contains every value passed to Set, in order.
	Writes []bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeRelay creates a FakeRelay in the de-energized state.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the relay write.
func (f *FakeRelay) Set(energized bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Energized = energized
	f.Writes = append(f.Writes, energized)
	return nil
}

// FakePulser drives a pulse callback the way the edge-event goroutine
// would.
type FakePulser struct {
	onPulse func()
}

// NewFakePulser creates a FakePulser for the given callback.
func NewFakePulser(onPulse func()) *FakePulser {
	if onPulse == nil {
		onPulse = func() {}
	}
	return &FakePulser{onPulse: onPulse}
}

// Fire delivers n rising edges.
func (f *FakePulser) Fire(n int) {
	for i := 0; i < n; i++ {
		f.onPulse()
	}
}
