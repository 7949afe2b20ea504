// logging.go - structured logging for the later package.
//
// Package-level configuration for structured logging. This design allows
// external integration with logging frameworks (see logiface.go) while
// providing a low-overhead built-in implementation for basic usage.
//
// Usage:
//
//	later.SetStructuredLogger(later.NewWriterLogger(later.LevelDebug, os.Stderr))
//
// A package-level global is appropriate here: logging is an infrastructure
// cross-cutting concern, all loops share logging semantics, and it keeps the
// per-call configuration surface flat.

package later

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// Global structured logger for package-level logging functions.
	globalLogger struct {
		sync.RWMutex
		logger Logger
	}
)

// SetStructuredLogger sets the global structured logger. Passing nil
// restores the default (errors to os.Stderr).
func SetStructuredLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

// getLogger safely retrieves the global logger.
func getLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return defaultLogger
}

// LogLevel represents the severity of a log message. The configuration
// surface is a single knob with values {Off, Error, Warn, Info, Debug},
// defaulting to Error.
type LogLevel int32

const (
	// LevelOff disables all logging.
	LevelOff LogLevel = iota

	// LevelError for error conditions. The default.
	LevelError

	// LevelWarn for warning conditions.
	LevelWarn

	// LevelInfo for general informational messages.
	LevelInfo

	// LevelDebug for detailed diagnostic information.
	LevelDebug
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Context    map[string]interface{}
	Category   string // "registry", "table", "dispatch", "wakeup", "fdwait"
	Message    string
	Err        error
	Timestamp  time.Time
	CallbackID CallbackID
	LoopID     int32
	Level      LogLevel
}

// Logger is the structured logging interface.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// NoOpLogger discards all entries.
type NoOpLogger struct{}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// Log implements Logger.
func (l *NoOpLogger) Log(LogEntry) {}

// IsEnabled implements Logger.
func (l *NoOpLogger) IsEnabled(LogLevel) bool { return false }

// WriterLogger implements Logger using any io.Writer.
type WriterLogger struct {
	out   io.Writer
	mu    sync.Mutex
	level LogLevel
	lvlMu sync.RWMutex
}

// NewWriterLogger creates a logger writing plain-text entries to out, with
// the given minimum level.
func NewWriterLogger(level LogLevel, out io.Writer) *WriterLogger {
	return &WriterLogger{level: level, out: out}
}

// SetLevel dynamically changes the minimum log level.
func (l *WriterLogger) SetLevel(level LogLevel) {
	l.lvlMu.Lock()
	l.level = level
	l.lvlMu.Unlock()
}

// IsEnabled checks whether the specified level would be logged.
func (l *WriterLogger) IsEnabled(level LogLevel) bool {
	l.lvlMu.RLock()
	configured := l.level
	l.lvlMu.RUnlock()
	return level != LevelOff && configured != LevelOff && level <= configured
}

// Log writes a structured log entry as a single text line.
func (l *WriterLogger) Log(entry LogEntry) {
	// Lazy evaluation - check level before formatting.
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.out, "[%s] [%s] [%-8s] %s",
		entry.Level.String(),
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category,
		entry.Message,
	)
	if entry.LoopID != 0 {
		fmt.Fprintf(l.out, " loop=%d", entry.LoopID)
	}
	if entry.CallbackID != 0 {
		fmt.Fprintf(l.out, " callback=%d", entry.CallbackID)
	}
	for k, v := range entry.Context {
		fmt.Fprintf(l.out, " %s=%v", k, v)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.out, " err=%v", entry.Err)
	}
	fmt.Fprintln(l.out)
}

// defaultLogger is the built-in fallback when no logger is configured:
// errors only, to standard error. WithLogLevel adjusts its level.
var defaultLogger = NewWriterLogger(LevelError, os.Stderr)

// logDebug logs a debug message using the global logger.
func logDebug(category, message string, fields map[string]interface{}) {
	logger := getLogger()
	if !logger.IsEnabled(LevelDebug) {
		return
	}
	logger.Log(LogEntry{Level: LevelDebug, Category: category, Message: message, Context: fields})
}

// logWarn logs a warning message using the global logger.
func logWarn(category, message string, fields map[string]interface{}) {
	logger := getLogger()
	if !logger.IsEnabled(LevelWarn) {
		return
	}
	logger.Log(LogEntry{Level: LevelWarn, Category: category, Message: message, Context: fields})
}

// logError logs an error message using the global logger.
func logError(category, message string, err error, fields map[string]interface{}) {
	logger := getLogger()
	if !logger.IsEnabled(LevelError) {
		return
	}
	logger.Log(LogEntry{Level: LevelError, Category: category, Message: message, Err: err, Context: fields})
}
