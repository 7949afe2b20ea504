package later

import (
	"strconv"
	"sync"
	"unsafe"
)

var initOnce sync.Once

// EnsureInitialized designates the calling goroutine as the host's main
// thread, applies options, and creates the wakeup mechanism. Idempotent;
// options are applied on the first call only. Main goroutine only: every
// subsequent main-thread-only operation is checked against this goroutine
// when assertions are enabled.
func EnsureInitialized(opts ...Option) error {
	var err error
	initOnce.Do(func() {
		var cfg *initOptions
		cfg, err = resolveInitOptions(opts)
		if err != nil {
			return
		}
		if cfg.clock != nil {
			timeSource = cfg.clock
		}
		if cfg.logger != nil {
			SetStructuredLogger(cfg.logger)
		} else if cfg.logLevel != nil {
			defaultLogger.SetLevel(*cfg.logLevel)
		}
		if cfg.host != nil {
			SetHost(cfg.host)
		}
		dispatchState.pumpLimit = cfg.pumpLimit
		mainGoroutineID.Store(getGoroutineID())
		err = wakeup.ensureInitialized()
	})
	return err
}

// CreateLoop registers a new loop with the given id; parentID negative
// means no parent, otherwise the parent must exist and the new loop is
// appended to its children. Recreating an existing id fails with
// ErrLoopAlreadyExists. Main goroutine only.
func CreateLoop(id, parentID int32) error {
	if err := EnsureInitialized(); err != nil {
		return err
	}
	return table.create(id, parentID)
}

// ExistsLoop reports whether the loop is live. Thread-safe.
func ExistsLoop(id int32) bool {
	return table.exists(id)
}

// DeleteLoop explicitly removes a loop. The global loop, the current loop,
// and loops with outstanding fd-waits cannot be deleted. Main goroutine
// only.
func DeleteLoop(id int32) error {
	return table.deleteLoop(id, dispatchState.currentLoop)
}

// NotifyLoopHandleReleased records that the host's reference to the loop
// was collected, pruning the loop once (and if) it drains. Main goroutine
// only. Reports whether the loop was known.
func NotifyLoopHandleReleased(id int32) bool {
	return table.notifyHostRefReleased(id)
}

// SetCurrentLoop selects the loop newly created work attaches to by
// convention. Main goroutine only.
func SetCurrentLoop(id int32) {
	assertMainThread("set current loop")
	dispatchState.currentLoop = id
}

// CurrentLoop returns the current loop id. Main goroutine only.
func CurrentLoop() int32 {
	return dispatchState.currentLoop
}

// ExecLater schedules a host callback on the loop after delaySecs seconds
// (negative means immediately). It returns the callback id encoded as a
// decimal string, "0" if the loop does not exist: hosts without 64-bit
// integers round-trip the id as text. Main goroutine only (host callbacks
// hold host-managed state).
func ExecLater(fn func() error, delaySecs float64, loopID int32) string {
	if err := EnsureInitialized(); err != nil {
		logError("dispatch", "initialization failed", err, nil)
		return "0"
	}
	if delaySecs < 0 {
		delaySecs = 0
	}
	cb := newHostCallback(NewTimestamp(delaySecs), fn)
	id := table.scheduleCallback(loopID, cb)
	return strconv.FormatUint(uint64(id), 10)
}

// ExecLaterNative schedules a native callback on the loop after delaySecs
// seconds (negative means immediately). Returns 0 if the loop does not
// exist. Thread-safe; this is the path native extensions call from
// arbitrary threads. The data pointer is owned by the caller and never
// dereferenced by the scheduler.
func ExecLaterNative(fn NativeFunc, data unsafe.Pointer, delaySecs float64, loopID int32) CallbackID {
	if err := EnsureInitialized(); err != nil {
		logError("dispatch", "initialization failed", err, nil)
		return 0
	}
	return table.scheduleNative(loopID, fn, data, delaySecs)
}

// Cancel removes the queued callback with the string-encoded id from the
// loop, reporting whether it was removed. A cancelled callback is never
// invoked. Main goroutine only.
func Cancel(callbackID string, loopID int32) bool {
	id, err := strconv.ParseUint(callbackID, 10, 64)
	if err != nil || id == 0 {
		return false
	}
	return CancelID(CallbackID(id), loopID)
}

// CancelID is Cancel for callers that hold the numeric id.
func CancelID(id CallbackID, loopID int32) bool {
	return table.cancel(id, loopID)
}

// ExecCallbacks waits up to timeoutSecs for work to become due on the loop
// or its descendants, then drains it: parent first, then children in
// creation order, all against a single clock snapshot. When runAll is false
// at most one of the loop's own callbacks runs; its descendants are still
// drained fully. Reports whether anything ran. Main goroutine only.
func ExecCallbacks(timeoutSecs float64, runAll bool, loopID int32) (bool, error) {
	if err := EnsureInitialized(); err != nil {
		return false, err
	}
	return execCallbacksOn(loopID, timeoutSecs, runAll)
}

// Idle reports whether the loop has no pending callbacks and no
// outstanding fd-waits.
func Idle(loopID int32) (bool, error) {
	table.mu.Lock()
	defer table.mu.Unlock()
	reg := table.getLocked(loopID)
	if reg == nil {
		return false, ErrNoSuchLoop
	}
	return reg.emptyLocked(), nil
}

// NextOpSecs returns the seconds until the next scheduled operation on the
// loop or its descendants; +Inf when nothing is scheduled (or the loop is
// absent).
func NextOpSecs(loopID int32) float64 {
	return nextOpSecsOn(loopID)
}

// ListQueue snapshots the loop's queued callbacks in dispatch order, for
// introspection. Main goroutine only.
func ListQueue(loopID int32) ([]QueueItem, error) {
	assertMainThread("queue listing")
	table.mu.Lock()
	defer table.mu.Unlock()
	reg := table.getLocked(loopID)
	if reg == nil {
		return nil, ErrNoSuchLoop
	}
	return reg.listLocked(), nil
}

// ExecLaterFd waits in the background for I/O readiness on the given
// descriptor sets and schedules fn on the loop exactly once: on readiness,
// timeout (all results FdNotReady), or poll failure (all FdResultNA).
// Results carry one code per fd in read|write|except order. An infinite
// timeout waits forever; a negative one is normalised to one second.
// Thread-safe.
func ExecLaterFd(fn FdCompletion, readFds, writeFds, exceptFds []int, timeoutSecs float64, loopID int32) (*FdCancelHandle, error) {
	if err := EnsureInitialized(); err != nil {
		return nil, err
	}
	return execLaterFd(loopID, readFds, writeFds, exceptFds, timeoutSecs, fn)
}

// FdCancel cancels an outstanding fd-wait, suppressing its completion.
// Idempotent; true exactly once. Thread-safe.
func FdCancel(h *FdCancelHandle) bool {
	if h == nil {
		return false
	}
	return h.Cancel()
}

// CheckFdReady synchronously reports, per fd, whether it is readable,
// blocking up to timeoutSecs (negative or infinite blocks until ready).
func CheckFdReady(fds []int, timeoutSecs float64) ([]bool, error) {
	return checkFdReady(fds, timeoutSecs)
}

// IdleHandlerFd returns the wake pipe's read end for registration with the
// host's input-handler table, or -1 on platforms without one (watch
// WakeupChan instead).
func IdleHandlerFd() int {
	wakeup.mu.Lock()
	defer wakeup.mu.Unlock()
	return wakeup.readFd
}

// WakeupChan carries wakeup signals on platforms without a wake pipe.
func WakeupChan() <-chan struct{} {
	return wakeup.fallbackCh
}

// HandleIdleReady is the input-handler body: the host glue calls it on the
// main goroutine when IdleHandlerFd becomes readable (or WakeupChan
// fires). If the host is mid-stack the signal stays armed and the call is
// a no-op; at a safe point it drains the pipe and pumps the global loop.
func HandleIdleReady() {
	wakeup.onIdleReady()
}

// ResetAfterFork re-creates the wakeup mechanism in a forked child, which
// must not share the parent's wake pipe. Call on the child's main
// goroutine.
func ResetAfterFork() error {
	return wakeup.resetAfterFork()
}
