// Package status persists the current started/stopped record for the
// external notifier. One well-known file holds exactly one record;
// every write replaces it atomically so a concurrent reader never
// sees a partial record.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweeney/waterfuse/internal/logic"
)

// DefaultPath is where the daemon keeps its status record.
const DefaultPath = "/var/run/waterfuse/waterfuse.state"

// Writer persists status records to a fixed path. Called only from
// the control loop; not safe for concurrent use.
type Writer struct {
	path string
}

// NewWriter creates a writer for the given path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write replaces the status record with "{status}\t{reason}\n". The
// record is written to a temp file in the same directory and renamed
// into place so the replacement is atomic.
func (w *Writer) Write(rec logic.Record) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".waterfuse-state-*")
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}

	_, err = fmt.Fprintf(tmp, "%s\t%s\n", rec.Status, rec.Reason)
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write status record: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod status file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}

// Parse decodes a status record as written by Write. Used by the
// notifier side.
func Parse(b []byte) (logic.Record, error) {
	line := strings.TrimSuffix(string(b), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
		return logic.Record{}, fmt.Errorf("malformed status record %q", string(b))
	}
	return logic.Record{
		Status: logic.Status(fields[0]),
		Reason: logic.Reason(fields[1]),
	}, nil
}

// Read loads and parses the record at path.
func Read(path string) (logic.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return logic.Record{}, err
	}
	return Parse(b)
}
