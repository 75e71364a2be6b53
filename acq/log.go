package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Logging ambient stack. The engine needs to log
 *		startup-fatal, initialization-recoverable, and control-
 *		plane-error events without owning a full structured-logging
 *		subsystem itself. This wraps github.com/charmbracelet/log
 *		behind a small interface so nothing in the package reaches
 *		for a global logger -- every caller is handed its own.
 *
 *---------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the narrow slice of charmbracelet/log's API the engine uses.
// Defining it lets tests pass a silent or capturing logger without pulling
// in the real backend.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type charmLogger struct {
	l *log.Logger
}

// NewLogger builds the default logger, leveled from the daq.log_level
// configuration key: 0 quiets everything but errors, higher values turn on
// info and debug output.
func NewLogger(logLevel int) Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "daq",
	})

	switch {
	case logLevel <= 0:
		l.SetLevel(log.ErrorLevel)
	case logLevel == 1:
		l.SetLevel(log.InfoLevel)
	default:
		l.SetLevel(log.DebugLevel)
	}

	return &charmLogger{l: l}
}

func (c *charmLogger) Infof(format string, args ...any) {
	c.l.Infof(format, args...)
}

func (c *charmLogger) Errorf(format string, args ...any) {
	c.l.Errorf(format, args...)
}

// NilLogger discards everything; used by tests that don't care about log
// output.
type NilLogger struct{}

func (NilLogger) Infof(string, ...any)  {}
func (NilLogger) Errorf(string, ...any) {}
