// Package diag is the structured diagnostic logger shared by every
// package's startup validation path. It uses a five-way severity
// taxonomy (info / error / received-data / decoded / notice) backed by
// a real structured logger instead of a hand-rolled color-code print
// shim.
package diag

import (
	"os"

	"github.com/charmbracelet/log"
)

// Severity is the diagnostic category for one logged event.
type Severity int

const (
	Info Severity = iota
	Error
	Received
	Decoded
	Notice
)

// Logger wraps a charmbracelet/log.Logger with the severity taxonomy.
type Logger struct {
	l *log.Logger
}

// New constructs a logger writing to stderr with caller-friendly
// formatting and an adjustable verbosity level.
func New() *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	return &Logger{l: l}
}

// SetLevel adjusts verbosity; level 0 is quiet (warnings and errors only).
func (d *Logger) SetLevel(verbose int) {
	switch {
	case verbose <= 0:
		d.l.SetLevel(log.WarnLevel)
	case verbose == 1:
		d.l.SetLevel(log.InfoLevel)
	default:
		d.l.SetLevel(log.DebugLevel)
	}
}

// Log emits a message at the given severity with structured key/values.
func (d *Logger) Log(sev Severity, msg string, kv ...interface{}) {
	switch sev {
	case Error:
		d.l.Error(msg, kv...)
	case Notice:
		d.l.Warn(msg, kv...)
	case Received, Decoded:
		d.l.Info(msg, kv...)
	default:
		d.l.Info(msg, kv...)
	}
}

// Default is the package-level logger used when a caller doesn't
// construct its own.
var Default = New()
