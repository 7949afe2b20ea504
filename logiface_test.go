package later

import (
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
)

// testEvent is a minimal logiface.Event implementation for exercising the
// adapter.
type testEvent struct {
	logiface.UnimplementedEvent
	fields map[string]any
	msg    string
	level  logiface.Level
}

func (e *testEvent) Level() logiface.Level { return e.level }

func (e *testEvent) AddField(key string, val any) { e.fields[key] = val }

func (e *testEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

type testEventFactory struct{}

func (testEventFactory) NewEvent(level logiface.Level) *testEvent {
	return &testEvent{level: level, fields: make(map[string]any)}
}

type testEventWriter struct {
	events []*testEvent
}

func (w *testEventWriter) Write(event *testEvent) error {
	w.events = append(w.events, event)
	return nil
}

func newTestLogifaceLogger(level logiface.Level) (*LogifaceLogger, *testEventWriter) {
	writer := &testEventWriter{}
	typed := logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](testEventFactory{}),
		logiface.WithWriter[*testEvent](writer),
		logiface.WithLevel[*testEvent](level),
	)
	return NewLogifaceLogger(typed.Logger()), writer
}

func TestLogifaceAdapterForwardsEntries(t *testing.T) {
	adapter, writer := newTestLogifaceLogger(logiface.LevelDebug)

	adapter.Log(LogEntry{
		Level:      LevelError,
		Category:   "fdwait",
		Message:    "poll failed",
		Err:        errors.New("bad fd"),
		LoopID:     4,
		CallbackID: 17,
		Context:    map[string]interface{}{"fds": 3},
	})

	if len(writer.events) != 1 {
		t.Fatalf("wrote %d events, want 1", len(writer.events))
	}
	ev := writer.events[0]
	if ev.level != logiface.LevelError {
		t.Errorf("level = %v, want error", ev.level)
	}
	if ev.msg != "poll failed" {
		t.Errorf("msg = %q", ev.msg)
	}
	if ev.fields["category"] != "fdwait" {
		t.Errorf("category field = %v", ev.fields["category"])
	}
	// UnimplementedEvent lacks the integer optimisations, so logiface
	// falls back to decimal strings for these.
	if ev.fields["loop"] != "4" {
		t.Errorf("loop field = %v", ev.fields["loop"])
	}
	if ev.fields["callback"] != "17" {
		t.Errorf("callback field = %v", ev.fields["callback"])
	}
	if _, ok := ev.fields["fds"]; !ok {
		t.Error("context field missing")
	}
}

func TestLogifaceAdapterLevelGate(t *testing.T) {
	adapter, writer := newTestLogifaceLogger(logiface.LevelWarning)

	if !adapter.IsEnabled(LevelError) || !adapter.IsEnabled(LevelWarn) {
		t.Error("error/warn should be enabled at warning level")
	}
	if adapter.IsEnabled(LevelInfo) || adapter.IsEnabled(LevelDebug) {
		t.Error("info/debug should be disabled at warning level")
	}
	if adapter.IsEnabled(LevelOff) {
		t.Error("LevelOff must never be enabled")
	}

	adapter.Log(LogEntry{Level: LevelDebug, Category: "table", Message: "dropped"})
	if len(writer.events) != 0 {
		t.Errorf("suppressed entry reached the writer: %v", writer.events)
	}
}

func TestLogifaceAdapterNil(t *testing.T) {
	adapter := NewLogifaceLogger(nil)
	if adapter.IsEnabled(LevelError) {
		t.Error("nil-backed adapter claims to be enabled")
	}
	adapter.Log(LogEntry{Level: LevelError, Message: "ignored"}) // must not panic
}

func TestLogifaceAdapterAsGlobalLogger(t *testing.T) {
	adapter, writer := newTestLogifaceLogger(logiface.LevelDebug)
	SetStructuredLogger(adapter)
	defer SetStructuredLogger(nil)

	logWarn("wakeup", "pipe write failed", nil)
	if len(writer.events) != 1 {
		t.Fatalf("wrote %d events, want 1", len(writer.events))
	}
	if writer.events[0].level != logiface.LevelWarning {
		t.Errorf("level = %v, want warning", writer.events[0].level)
	}
}
