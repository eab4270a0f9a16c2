// Package hostlog wires up the structured logger used by the demo
// server binary.
package hostlog

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how New builds a logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Role   string // "server" or "client", attached to every line
}

// New builds a zerolog.Logger with a timestamp, caller info, and a
// "role" field identifying which side of the connection emitted the
// line.
func New(opts Options) zerolog.Logger {
	var output io.Writer = os.Stdout

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if opts.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	role := opts.Role
	if role == "" {
		role = "unknown"
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Str("role", role).
		Logger()
}

// LogError logs an error with context fields attached.
func LogError(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// RecoverPanic, when deferred at the top of a goroutine, recovers a
// panic so a single bad packet or entity callback can't take down the
// whole process. It logs the panic value and stack and lets the
// goroutine exit instead of re-panicking.
func RecoverPanic(logger zerolog.Logger, goroutineName string, fields map[string]any) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())

		event := logger.Error().
			Str("goroutine", goroutineName).
			Interface("panic_value", r).
			Str("stack_trace", stack)
		for k, v := range fields {
			event = event.Interface(k, v)
		}
		event.Msg("goroutine panic recovered")
	}
}
