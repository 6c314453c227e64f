// Package logger builds charmbracelet/log loggers for swipeserve packages.
//
// Everything logs to stderr: stdout carries the msgpack stream in server mode.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Setup configures the package-level logger. Debug mode turns on timestamps
// and debug output; otherwise only warnings and errors are shown.
func Setup(w io.Writer, debug bool) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
	log.SetReportTimestamp(debug)
	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.WarnLevel)
}

// New creates a component logger that follows the global log level.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, true, log.TextFormatter)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
