package mqtt

import (
	"time"

	"github.com/sweeney/waterfuse/internal/logic"
)

// FakePublisher records published transitions for test assertions.
type FakePublisher struct {
	// Records contains all transitions that were published.
	Records []logic.Record

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the transition.
func (f *FakePublisher) Publish(rec logic.Record, at time.Time) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(rec, at)
	if err != nil {
		return err
	}

	f.Records = append(f.Records, rec)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
