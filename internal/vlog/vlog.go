// Package vlog is the daemon's leveled diagnostic output: level 0
// lines always print, higher levels are gated by the configured
// verbosity. Lines are timestamped like everything else the daemon
// logs.
package vlog

import (
	"io"
	"log"
)

// Logger writes leveled, timestamped log lines.
type Logger struct {
	l *log.Logger

	// verbosity is read and replaced only by the control loop (on
	// config reload); Printf from other goroutines uses the level-0
	// path.
	verbosity int
}

// New creates a logger writing to w with the given verbosity.
func New(w io.Writer, verbosity int) *Logger {
	return &Logger{
		l:         log.New(w, "", log.LstdFlags),
		verbosity: verbosity,
	}
}

// Printf logs the line when level is within the configured verbosity.
// Level 0 always prints.
func (g *Logger) Printf(level int, format string, args ...interface{}) {
	if level > g.verbosity {
		return
	}
	g.l.Printf(format, args...)
}

// SetVerbosity replaces the verbosity gate, applied on config reload.
func (g *Logger) SetVerbosity(v int) {
	g.verbosity = v
}

// Verbosity returns the current gate.
func (g *Logger) Verbosity() int {
	return g.verbosity
}

// SetOutput redirects log output, used when the log file is reopened
// on SIGHUP.
func (g *Logger) SetOutput(w io.Writer) {
	g.l.SetOutput(w)
}
