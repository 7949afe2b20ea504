package later

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		LevelOff:   "OFF",
		LevelError: "ERROR",
		LevelWarn:  "WARN",
		LevelInfo:  "INFO",
		LevelDebug: "DEBUG",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
	if got := LogLevel(42).String(); !strings.Contains(got, "UNKNOWN") {
		t.Errorf("unknown level String() = %q", got)
	}
}

func TestWriterLoggerLevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	if !l.IsEnabled(LevelError) || !l.IsEnabled(LevelWarn) {
		t.Error("levels at or above the configured severity must be enabled")
	}
	if l.IsEnabled(LevelInfo) || l.IsEnabled(LevelDebug) {
		t.Error("levels below the configured severity must be disabled")
	}
	if l.IsEnabled(LevelOff) {
		t.Error("LevelOff must never be enabled")
	}

	l.Log(LogEntry{Level: LevelDebug, Category: "table", Message: "dropped"})
	if buf.Len() != 0 {
		t.Errorf("suppressed entry produced output: %q", buf.String())
	}

	l.Log(LogEntry{Level: LevelError, Category: "dispatch", Message: "kept", LoopID: 3, CallbackID: 9})
	out := buf.String()
	for _, want := range []string{"[ERROR]", "[dispatch", "kept", "loop=3", "callback=9"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestWriterLoggerOff(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelOff, &buf)
	for _, level := range []LogLevel{LevelError, LevelWarn, LevelInfo, LevelDebug} {
		if l.IsEnabled(level) {
			t.Errorf("level %v enabled while logger is off", level)
		}
	}
	l.Log(LogEntry{Level: LevelError, Message: "nope"})
	if buf.Len() != 0 {
		t.Error("off logger produced output")
	}
}

func TestWriterLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelError, &buf)
	if l.IsEnabled(LevelDebug) {
		t.Fatal("debug enabled at error level")
	}
	l.SetLevel(LevelDebug)
	if !l.IsEnabled(LevelDebug) {
		t.Error("debug still disabled after SetLevel")
	}
}

func TestGlobalLoggerSwap(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)
	SetStructuredLogger(l)
	defer SetStructuredLogger(nil)

	logDebug("table", "hello", map[string]interface{}{"k": "v"})
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Errorf("global logger did not receive the entry: %q", out)
	}
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	if l.IsEnabled(LevelError) {
		t.Error("no-op logger claims to be enabled")
	}
	l.Log(LogEntry{Level: LevelError, Message: "ignored"}) // must not panic
}
