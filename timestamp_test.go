package later

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// withMockClock swaps the package clock for a mock for the duration of the
// test.
func withMockClock(t *testing.T) *clock.Mock {
	t.Helper()
	prev := timeSource
	mock := clock.NewMock()
	timeSource = mock
	t.Cleanup(func() { timeSource = prev })
	return mock
}

func TestTimestampOrdering(t *testing.T) {
	mock := withMockClock(t)

	a := now()
	mock.Add(time.Millisecond)
	b := now()

	if !a.Before(b) {
		t.Error("earlier timestamp not ordered before later one")
	}
	if !b.After(a) {
		t.Error("later timestamp not ordered after earlier one")
	}
	if a.Before(a) || a.After(a) {
		t.Error("timestamp ordered against itself")
	}
}

func TestTimestampOffsetConstruction(t *testing.T) {
	withMockClock(t)

	ts := NewTimestamp(5)
	if got := ts.DiffSecs(now()); got != 5 {
		t.Errorf("DiffSecs at construction = %v, want 5", got)
	}
	if !ts.InFuture() {
		t.Error("positive-offset timestamp not in future")
	}
	if got := NewTimestamp(0).InFuture(); got {
		t.Error("zero-offset timestamp claimed to be in future")
	}
	if NewTimestamp(-1).InFuture() {
		t.Error("negative-offset timestamp claimed to be in future")
	}
}

func TestTimestampFutureComparesAfterNow(t *testing.T) {
	mock := withMockClock(t)

	ts := NewTimestamp(2)
	if ts.Before(now()) {
		t.Error("future timestamp compares before now")
	}

	mock.Add(3 * time.Second)
	if ts.InFuture() {
		t.Error("timestamp still in future after the clock passed it")
	}
	if !now().After(ts) {
		t.Error("now does not compare after an elapsed timestamp")
	}
}

func TestSecsToDurationSaturates(t *testing.T) {
	if d := secsToDuration(maxWaitSecs); d != 1<<63-1 {
		t.Errorf("huge offset did not saturate, got %v", d)
	}
	if d := secsToDuration(-maxWaitSecs); d != -(1<<63 - 1) {
		t.Errorf("huge negative offset did not saturate, got %v", d)
	}
	if d := secsToDuration(1.5); d != 1500*time.Millisecond {
		t.Errorf("secsToDuration(1.5) = %v", d)
	}
}
