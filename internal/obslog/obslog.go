// Package obslog is the runtime's small ambient logger: timestamped,
// leveled lines for the abort/shutdown diagnostics spec.md §7 requires
// ("a log line identifying the peer and decoded exception"). Application
// logging is out of scope (spec.md §1); this covers only the runtime's own
// internal diagnostics.
package obslog

import (
	"fmt"
	"log"
	"os"
)

// Logger is a minimal leveled wrapper over the standard logger.
type Logger struct {
	std    *log.Logger
	silent bool
	prefix string
}

// New returns a Logger tagged with prefix (typically the local player id).
// When silent is true (the --no-log CLI flag), all methods are no-ops.
func New(prefix string, silent bool) *Logger {
	return &Logger{
		std:    log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
		silent: silent,
		prefix: prefix,
	}
}

func (l *Logger) logf(level, format string, args ...interface{}) {
	if l == nil || l.silent {
		return
	}
	l.std.Printf("[%s] %s: %s", level, l.prefix, fmt.Sprintf(format, args...))
}

// Info logs a routine progress line.
func (l *Logger) Info(format string, args ...interface{}) { l.logf("info", format, args...) }

// Warn logs a recoverable anomaly.
func (l *Logger) Warn(format string, args ...interface{}) { l.logf("warn", format, args...) }

// Abort logs the fatal condition that triggers a runtime shutdown,
// identifying the offending peer per spec.md §7.
func (l *Logger) Abort(peerID string, err error) {
	l.logf("abort", "peer %s: %v", peerID, err)
}
