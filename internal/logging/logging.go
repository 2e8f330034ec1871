package logging

import "log"

// Provides a simple leveled logger interface for the application.
// Debug output is gated by the verbosity count taken from -v.

type Logger interface {
	Debug(level int, msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type StdLogger struct {
	Verbosity int
}

func (l StdLogger) Debug(level int, msg string, args ...any) {
	if l.Verbosity >= level {
		log.Printf("DEBUG: "+msg, args...)
	}
}

func (StdLogger) Info(msg string, args ...any)  { log.Printf("INFO: "+msg, args...) }
func (StdLogger) Warn(msg string, args ...any)  { log.Printf("WARN: "+msg, args...) }
func (StdLogger) Error(msg string, args ...any) { log.Printf("ERROR: "+msg, args...) }

// Discard drops everything. Used by tests and by callers that only want the
// return values.
type Discard struct{}

func (Discard) Debug(int, string, ...any) {}
func (Discard) Info(string, ...any)       {}
func (Discard) Warn(string, ...any)       {}
func (Discard) Error(string, ...any)      {}
