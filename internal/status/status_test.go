package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/waterfuse/internal/logic"
)

func TestWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterfuse.state")
	w := NewWriter(path)

	if err := w.Write(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup}); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "started\tstartup\n" {
		t.Errorf("content: got %q, want %q", b, "started\tstartup\n")
	}
}

func TestWriteReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waterfuse.state")
	w := NewWriter(path)

	if err := w.Write(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write(logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonVolume}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	rec, err := Read(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if rec.Status != logic.StatusStopped || rec.Reason != logic.ReasonVolume {
		t.Errorf("record: got %s/%s, want stopped/volume", rec.Status, rec.Reason)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waterfuse.state")
	w := NewWriter(path)

	if err := w.Write(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonSignal}); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "waterfuse.state" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contents: got %v, want [waterfuse.state]", names)
	}
}

func TestWriteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "waterfuse", "waterfuse.state")
	w := NewWriter(path)

	if err := w.Write(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("status file missing: %v", err)
	}
}

func TestParse(t *testing.T) {
	rec, err := Parse([]byte("stopped\ttime\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.Status != logic.StatusStopped || rec.Reason != logic.ReasonTime {
		t.Errorf("record: got %s/%s, want stopped/time", rec.Status, rec.Reason)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"", "started", "started startup\n", "\tstartup\n", "started\t\n"} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.state"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
