// Package logging provides the process-wide structured logger used by
// every component of the quest benchmark engine, built on bolt.
package logging

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	initOnce      sync.Once
)

// Config controls the default logger's level, format, and destination.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string

	// Format is "json" or "console".
	Format string

	// Output is the writer logs are emitted to; defaults to os.Stdout.
	Output *os.File
}

// DefaultConfig is the interactive-use default: console output at info.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stdout}
}

// ProductionConfig is the batch/CI default: structured JSON at info.
func ProductionConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stdout}
}

func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// Init sets up the default logger. Only the first call in a process takes
// effect; later calls are no-ops, so CLI startup can call Init
// unconditionally before any other code calls Get.
func Init(cfg Config) {
	initOnce.Do(func() {
		output := cfg.Output
		if output == nil {
			output = os.Stdout
		}

		var handler bolt.Handler
		if cfg.Format == "json" {
			handler = bolt.NewJSONHandler(output)
		} else {
			handler = bolt.NewConsoleHandler(output)
		}

		defaultLogger = bolt.New(handler).SetLevel(parseLevel(cfg.Level))
	})
}

// Get returns the default logger, lazily initializing it with
// DefaultConfig if Init was never called.
func Get() *bolt.Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// SetLevel changes the default logger's level at runtime (the CLI's
// --debug flag uses this).
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent chains typed Field values onto a bolt.Event before sending it.
type LogEvent struct {
	event *bolt.Event
}

// Add applies a field constructor and returns the wrapper for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg sends the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send sends the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

func Trace() *LogEvent { return &LogEvent{event: Get().Trace()} }
func Debug() *LogEvent { return &LogEvent{event: Get().Debug()} }
func Info() *LogEvent  { return &LogEvent{event: Get().Info()} }
func Warn() *LogEvent  { return &LogEvent{event: Get().Warn()} }
func Error() *LogEvent { return &LogEvent{event: Get().Error()} }
func Fatal() *LogEvent { return &LogEvent{event: Get().Fatal()} }
