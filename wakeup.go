package later

import (
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// wakeDriver arranges for the dispatcher to run when the host next goes
// idle. On platforms with a wake pipe (see wakeup_unix.go) the host
// registers the read end with its input-handler table and calls
// HandleIdleReady when it becomes readable; elsewhere the glue watches
// WakeupChan. Requests are collapsed with a hot/cold flag: a byte is
// written only when the pipe is cold, and the handler marks it cold again
// before draining.
type wakeDriver struct {
	mu          sync.Mutex
	initialized bool
	readFd      int
	writeFd     int

	// hot is 1 while a wakeup is already signaled and undelivered.
	hot atomic.Uint32

	// paused suppresses firing while > 0 (the dispatcher is mid-stack).
	paused atomic.Int32

	// fallbackCh carries wakeups on platforms without a wake pipe.
	// Buffered size 1: sends never block, redundant signals collapse.
	fallbackCh chan struct{}

	// One pending deadline timer, re-armed to the earliest request.
	timerMu   sync.Mutex
	timer     *clock.Timer
	timerWhen Timestamp
	timerSet  bool
}

var wakeup = &wakeDriver{
	readFd:     -1,
	writeFd:    -1,
	fallbackCh: make(chan struct{}, 1),
}

// ensureInitialized creates the wake pipe. Main goroutine only; idempotent.
func (d *wakeDriver) ensureInitialized() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if wakePipeSupported() {
		r, w, err := createWakePipe()
		if err != nil {
			return err
		}
		d.readFd, d.writeFd = r, w
	}
	d.initialized = true
	return nil
}

// requestWakeup schedules the idle callback to fire on or before at. May
// be called from any thread; redundant requests collapse onto the hot flag
// and the single earliest-deadline timer.
func (d *wakeDriver) requestWakeup(at Timestamp) {
	d.mu.Lock()
	initialized := d.initialized
	d.mu.Unlock()
	if !initialized {
		return
	}

	if !at.InFuture() {
		d.fire()
		return
	}

	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.timerSet && !at.Before(d.timerWhen) {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerWhen = at
	d.timerSet = true
	delay := secsToDuration(at.DiffSecs(now()))
	d.timer = timeSource.AfterFunc(delay, func() {
		d.timerMu.Lock()
		d.timerSet = false
		d.timerMu.Unlock()
		d.fire()
	})
}

// fire signals the host's idle mechanism iff the pipe is cold.
func (d *wakeDriver) fire() {
	if !d.hot.CompareAndSwap(0, 1) {
		return
	}
	d.mu.Lock()
	writeFd := d.writeFd
	d.mu.Unlock()
	if writeFd >= 0 {
		if err := writeWakeByte(writeFd); err != nil {
			logWarn("wakeup", "wake pipe write failed", map[string]interface{}{"err": err})
		}
		return
	}
	select {
	case d.fallbackCh <- struct{}{}:
	default:
	}
}

// pause suppresses idle firings until the returned resume function runs.
// Used while the dispatcher is mid-stack.
func (d *wakeDriver) pause() (resume func()) {
	d.paused.Add(1)
	return func() { d.paused.Add(-1) }
}

// onIdleReady is the input-handler body: called by host glue on the main
// goroutine when the wake fd is readable (or WakeupChan fires). If the
// host is mid-stack the call returns without draining, leaving the signal
// armed so the host calls back at its next safe point.
func (d *wakeDriver) onIdleReady() {
	assertMainThread("idle handler")
	if d.paused.Load() > 0 {
		return
	}
	if !AtTopLevel() {
		// Not safe to run arbitrary callbacks while host code is on the
		// stack; the pipe stays hot and readable.
		return
	}

	resume := d.pause()
	defer resume()

	// Cold before draining: a schedule racing with the drain re-arms.
	d.hot.Store(0)
	d.mu.Lock()
	readFd := d.readFd
	d.mu.Unlock()
	if readFd >= 0 {
		drainWakePipe(readFd)
	} else {
		select {
		case <-d.fallbackCh:
		default:
		}
	}

	idlePump()

	// Hot on exit if more work remains.
	if next, ok := globalNextDeadline(); ok {
		d.requestWakeup(next)
	}
}

// globalNextDeadline returns the earliest deadline reachable from the
// global loop.
func globalNextDeadline() (Timestamp, bool) {
	table.mu.Lock()
	defer table.mu.Unlock()
	reg := table.getLocked(GlobalLoopID)
	if reg == nil {
		return Timestamp{}, false
	}
	return reg.nextDeadlineLocked(true)
}

// resetAfterFork drops the wake pipe inherited from the parent process and
// re-creates it. Call from the child after fork, on its main goroutine.
func (d *wakeDriver) resetAfterFork() error {
	d.timerMu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerSet = false
	d.timerMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.hot.Store(0)
	if d.readFd >= 0 || d.writeFd >= 0 {
		closeWakePipe(d.readFd, d.writeFd)
		d.readFd, d.writeFd = -1, -1
	}
	if !d.initialized {
		return nil
	}
	if wakePipeSupported() {
		r, w, err := createWakePipe()
		if err != nil {
			d.initialized = false
			return err
		}
		d.readFd, d.writeFd = r, w
	}
	return nil
}
