package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/waterfuse/internal/logic"
	"github.com/sweeney/waterfuse/internal/mqtt"
	"github.com/sweeney/waterfuse/internal/status"
)

func writeRecord(t *testing.T, path string, rec logic.Record) {
	t.Helper()
	if err := status.NewWriter(path).Write(rec); err != nil {
		t.Fatalf("write record: %v", err)
	}
}

func TestHandleUpdatePublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterfuse.state")
	writeRecord(t, path, logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonVolume})

	pub := mqtt.NewFakePublisher()
	n := New(path, pub)

	if err := n.HandleUpdate(); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if len(pub.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(pub.Records))
	}
	if pub.Records[0].Reason != logic.ReasonVolume {
		t.Errorf("reason: got %s, want volume", pub.Records[0].Reason)
	}
}

func TestHandleUpdateDedupes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterfuse.state")
	writeRecord(t, path, logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup})

	pub := mqtt.NewFakePublisher()
	n := New(path, pub)

	// Rename-into-place can fire multiple events for one write.
	for i := 0; i < 3; i++ {
		if err := n.HandleUpdate(); err != nil {
			t.Fatalf("handle update %d: %v", i, err)
		}
	}
	if len(pub.Records) != 1 {
		t.Fatalf("expected 1 record after duplicate events, got %d", len(pub.Records))
	}

	// A genuinely new record goes through.
	writeRecord(t, path, logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonTime})
	if err := n.HandleUpdate(); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if len(pub.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(pub.Records))
	}
}

func TestHandleUpdateMissingFile(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	n := New(filepath.Join(t.TempDir(), "nope.state"), pub)

	if err := n.HandleUpdate(); err == nil {
		t.Error("expected error for missing file")
	}
	if len(pub.Records) != 0 {
		t.Errorf("expected no records, got %d", len(pub.Records))
	}
}

func TestHandleUpdatePublishFailureRetriesNextEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterfuse.state")
	writeRecord(t, path, logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonVolume})

	pub := mqtt.NewFakePublisher()
	pub.PublishError = context.DeadlineExceeded
	n := New(path, pub)

	if err := n.HandleUpdate(); err == nil {
		t.Fatal("expected publish error")
	}

	// Failure must not poison the dedupe state.
	pub.PublishError = nil
	if err := n.HandleUpdate(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(pub.Records) != 1 {
		t.Fatalf("expected 1 record after retry, got %d", len(pub.Records))
	}
}

// chanPublisher delivers records to a channel so Watch can be
// asserted from the test goroutine.
type chanPublisher struct {
	recs chan logic.Record
}

func (p *chanPublisher) Publish(rec logic.Record, at time.Time) error {
	p.recs <- rec
	return nil
}

func (p *chanPublisher) Close() error { return nil }

func TestWatchForwardsTransitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waterfuse.state")
	writeRecord(t, path, logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup})

	pub := &chanPublisher{recs: make(chan logic.Record, 8)}
	n := New(path, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Watch(ctx) }()

	// The pre-existing record is forwarded on startup.
	select {
	case rec := <-pub.recs:
		if rec.Reason != logic.ReasonStartup {
			t.Errorf("initial reason: got %s, want startup", rec.Reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial record")
	}

	// An atomic replacement is picked up.
	writeRecord(t, path, logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonVolume})
	select {
	case rec := <-pub.recs:
		if rec.Status != logic.StatusStopped || rec.Reason != logic.ReasonVolume {
			t.Errorf("record: got %s/%s, want stopped/volume", rec.Status, rec.Reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transition")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("watch returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
