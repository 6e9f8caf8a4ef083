// Package notify watches the persisted status file and forwards each
// transition to the notification publisher. It is the external
// consumer of the daemon's status records; the daemon itself never
// talks to the network.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/waterfuse/internal/logic"
	"github.com/sweeney/waterfuse/internal/mqtt"
	"github.com/sweeney/waterfuse/internal/status"
)

// Notifier forwards status-file updates to a publisher, deduplicating
// repeats. The daemon replaces the file by rename, which can surface
// as several fsnotify events for one transition.
type Notifier struct {
	path string
	pub  mqtt.Publisher
	now  func() time.Time

	last *logic.Record
}

// New creates a Notifier for the status file at path.
func New(path string, pub mqtt.Publisher) *Notifier {
	return &Notifier{
		path: path,
		pub:  pub,
		now:  time.Now,
	}
}

// HandleUpdate reads the status file and publishes its record unless
// it matches the last one published.
func (n *Notifier) HandleUpdate() error {
	rec, err := status.Read(n.path)
	if err != nil {
		return fmt.Errorf("read status file: %w", err)
	}

	if n.last != nil && *n.last == rec {
		return nil
	}

	if err := n.pub.Publish(rec, n.now()); err != nil {
		return fmt.Errorf("publish %s/%s: %w", rec.Status, rec.Reason, err)
	}
	n.last = &rec
	return nil
}

// Watch forwards the current record (if any) and then every update
// until ctx is cancelled. The watch is on the parent directory:
// rename-into-place does not generate events on the path itself.
func (n *Notifier) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(n.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(n.path), err)
	}

	// Catch up with whatever the daemon last wrote.
	if _, err := os.Stat(n.path); err == nil {
		if err := n.HandleUpdate(); err != nil {
			log.Printf("initial status: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Name != n.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if err := n.HandleUpdate(); err != nil {
				// Transient: the next event retries.
				log.Printf("status update: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			log.Printf("watch error: %v", err)
		}
	}
}
