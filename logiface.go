package later

import (
	"github.com/joeycumines/logiface"
)

// LogifaceLogger adapts a type-erased logiface logger to the package's
// Logger interface, so hosts already using logiface wire straight in:
//
//	later.SetStructuredLogger(later.NewLogifaceLogger(myLogger.Logger()))
type LogifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger wraps l. A nil l yields a disabled logger.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) *LogifaceLogger {
	return &LogifaceLogger{l: l}
}

// toLogifaceLevel maps the package's level knob to syslog-style logiface
// levels.
func toLogifaceLevel(level LogLevel) logiface.Level {
	switch level {
	case LevelError:
		return logiface.LevelError
	case LevelWarn:
		return logiface.LevelWarning
	case LevelInfo:
		return logiface.LevelInformational
	case LevelDebug:
		return logiface.LevelDebug
	default:
		return logiface.LevelDisabled
	}
}

// IsEnabled implements Logger.
func (x *LogifaceLogger) IsEnabled(level LogLevel) bool {
	if x == nil || x.l == nil || level == LevelOff {
		return false
	}
	lvl := toLogifaceLevel(level)
	return lvl.Enabled() && lvl <= x.l.Level()
}

// Log implements Logger. Entry fields become structured logiface fields.
func (x *LogifaceLogger) Log(entry LogEntry) {
	if x == nil || x.l == nil {
		return
	}
	b := x.l.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.Str("category", entry.Category)
	if entry.LoopID != 0 {
		b = b.Int64("loop", int64(entry.LoopID))
	}
	if entry.CallbackID != 0 {
		b = b.Uint64("callback", uint64(entry.CallbackID))
	}
	for k, v := range entry.Context {
		b = b.Interface(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
