package vlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	g := New(&buf, 1)

	g.Printf(0, "always")
	g.Printf(1, "at verbosity")
	g.Printf(2, "too verbose")

	out := buf.String()
	if !strings.Contains(out, "always") {
		t.Error("level 0 line missing")
	}
	if !strings.Contains(out, "at verbosity") {
		t.Error("level 1 line missing at verbosity 1")
	}
	if strings.Contains(out, "too verbose") {
		t.Error("level 2 line printed at verbosity 1")
	}
}

func TestSetVerbosity(t *testing.T) {
	var buf bytes.Buffer
	g := New(&buf, 0)

	g.Printf(2, "hidden")
	g.SetVerbosity(2)
	g.Printf(2, "visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("line printed before verbosity raised")
	}
	if !strings.Contains(out, "visible") {
		t.Error("line missing after verbosity raised")
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	g := New(&first, 0)

	g.Printf(0, "one")
	g.SetOutput(&second)
	g.Printf(0, "two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("first sink: got %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("second sink: got %q", second.String())
	}
}

func TestLinesAreTimestamped(t *testing.T) {
	var buf bytes.Buffer
	g := New(&buf, 0)

	g.Printf(0, "stamped")

	// log.LstdFlags puts "YYYY/MM/DD HH:MM:SS " ahead of the message.
	line := buf.String()
	if len(line) < len("2026/01/01 00:00:00 stamped") {
		t.Fatalf("line too short to carry a timestamp: %q", line)
	}
	if strings.HasPrefix(line, "stamped") {
		t.Errorf("expected timestamp prefix, got %q", line)
	}
}
