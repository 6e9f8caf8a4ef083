package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/waterfuse/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	rec := logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonVolume}
	at := time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

	payload, err := FormatPayload(rec, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Water.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Water.Timestamp)
	}
	if parsed.Water.Status != "stopped" {
		t.Errorf("unexpected status: %s", parsed.Water.Status)
	}
	if parsed.Water.Reason != "volume" {
		t.Errorf("unexpected reason: %s", parsed.Water.Reason)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	rec := logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonButton}
	if err := f.Publish(rec, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(f.Records))
	}
	if f.Records[0] != rec {
		t.Errorf("unexpected record: %+v", f.Records[0])
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker unavailable")

	err := f.Publish(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup}, time.Now())
	if err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.Records) != 0 {
		t.Errorf("failed publish must not record, got %d", len(f.Records))
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed after Close()")
	}
}
