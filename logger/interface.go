// Package logger defines the structured logging contract used by the HTTP
// client layer and a zerolog implementation of it.
package logger

import "time"

// Logger creates leveled log events. Implementations must be safe for
// concurrent use; a single session logger is shared by every in-flight call.
type Logger interface {
	Info() LogEvent
	Error() LogEvent
	Debug() LogEvent
	Warn() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a single log entry being built. Nothing is written until Msg or
// Msgf is called.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}
