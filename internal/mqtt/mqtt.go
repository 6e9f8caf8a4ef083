// Package mqtt forwards water fuse status transitions to an MQTT
// broker, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/waterfuse/internal/logic"
)

// Topic is the MQTT topic for fuse status transitions.
const Topic = "water/waterfuse/status"

// Publisher forwards status records to the broker.
type Publisher interface {
	// Publish sends one status transition. Returns error if
	// publishing fails (must not crash the notifier).
	Publish(rec logic.Record, at time.Time) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the MQTT message envelope.
type Payload struct {
	Water WaterPayload `json:"water"`
}

// WaterPayload carries the transition details.
type WaterPayload struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// FormatPayload creates the JSON payload for a status transition.
func FormatPayload(rec logic.Record, at time.Time) ([]byte, error) {
	payload := Payload{
		Water: WaterPayload{
			Timestamp: at.UTC().Format(time.RFC3339),
			Status:    string(rec.Status),
			Reason:    string(rec.Reason),
		},
	}
	return json.Marshal(payload)
}
