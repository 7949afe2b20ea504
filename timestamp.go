package later

import (
	"time"

	"github.com/benbjohnson/clock"
)

// timeSource is the clock backing all Timestamp construction and every
// internal timer. It defaults to the real monotonic clock; WithClock swaps
// it (at initialization time, before any scheduling) so tests can drive
// deadlines deterministically.
var timeSource clock.Clock = clock.New()

// Timestamp is an opaque monotonic instant. The zero value is not
// meaningful; construct via now or NewTimestamp.
//
// Timestamps never move spontaneously: they are anchored to the monotonic
// clock reading taken at construction, so wall-clock adjustments (NTP,
// manual changes) do not reorder them.
type Timestamp struct {
	t time.Time
}

// now returns the current instant.
func now() Timestamp {
	return Timestamp{t: timeSource.Now()}
}

// NewTimestamp returns an instant secs seconds in the future relative to
// the current time. Negative offsets yield an instant in the past, which
// schedulers treat as immediately due.
func NewTimestamp(secs float64) Timestamp {
	return Timestamp{t: timeSource.Now().Add(secsToDuration(secs))}
}

// Before reports whether x is strictly earlier than other.
func (x Timestamp) Before(other Timestamp) bool {
	return x.t.Before(other.t)
}

// After reports whether x is strictly later than other.
func (x Timestamp) After(other Timestamp) bool {
	return x.t.After(other.t)
}

// DiffSecs returns x minus other, in seconds.
func (x Timestamp) DiffSecs(other Timestamp) float64 {
	return x.t.Sub(other.t).Seconds()
}

// InFuture reports whether x is strictly later than the current instant.
func (x Timestamp) InFuture() bool {
	return x.t.After(timeSource.Now())
}

// maxWaitSecs bounds negative or infinite wait inputs. Effectively forever,
// but finite so arithmetic stays well-defined.
const maxWaitSecs = 1e30

// secsToDuration converts a second count to a time.Duration, saturating
// instead of overflowing for inputs beyond the representable range
// (roughly ±292 years).
func secsToDuration(secs float64) time.Duration {
	const maxSecs = float64(1<<63-1) / float64(time.Second)
	if secs >= maxSecs {
		return 1<<63 - 1
	}
	if secs <= -maxSecs {
		return -(1<<63 - 1)
	}
	return time.Duration(secs * float64(time.Second))
}
