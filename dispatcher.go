package later

import (
	"errors"
	"math"
)

// table is the process singleton registry table.
var table = newRegistryTable()

// dispatchState holds the dispatcher's main-goroutine-only mutable state.
// It is deliberately NOT synchronized: every reader and writer is required
// to be the main goroutine, matching the host's single-threaded execution
// model.
var dispatchState struct {
	// execDepth counts nested exec passes. While non-zero the idle driver
	// must not fire: the host is mid-stack in a callback.
	execDepth int

	// currentLoop is the loop newly created work attaches to by
	// convention. Dispatch saves and restores it around each pass.
	currentLoop int32

	// pumpLimit bounds the exec passes per idle firing; this mitigates a
	// host that polls its idle hook infrequently.
	pumpLimit int
}

func init() {
	dispatchState.pumpLimit = defaultPumpLimit
}

const defaultPumpLimit = 20

// AtTopLevel reports whether it is safe to invoke user code: no dispatch
// pass is active and the host reports zero application frames. Main
// goroutine only.
func AtTopLevel() bool {
	if dispatchState.execDepth != 0 {
		return false
	}
	return getHost().StackDepth() == 0
}

// invokeCallback runs one callback under the host-error barrier: host
// callbacks go through the host's top-level exec wrapper, native and
// internal callbacks run directly, and panics from any variant are
// contained. Errors are classified, delivered to the host's diagnostic
// channel, and dispatch continues with the next callback.
func invokeCallback(cb *callback) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &NativeError{Cause: PanicError{Value: r}, Message: "later: callback panicked"}
			}
		}()
		switch cb.kind {
		case callbackHost:
			if execErr := getHost().TopLevelExec(cb.fn); execErr != nil {
				err = classifyHostError(execErr)
			}
		case callbackNative:
			if cb.nativeFn != nil {
				cb.nativeFn(cb.data)
			}
		default:
			err = cb.fn()
		}
	}()
	if err != nil {
		getLogger().Log(LogEntry{
			Level:      LevelError,
			Category:   "dispatch",
			Message:    "callback failed",
			Err:        err,
			CallbackID: cb.id,
		})
		getHost().ReportError(err)
	}
}

// classifyHostError maps barrier results onto the error taxonomy.
// Control-flow jumps out of host code are treated as host errors.
func classifyHostError(err error) error {
	switch {
	case errors.Is(err, ErrInterrupted):
		return err
	case errors.Is(err, ErrNonExceptionalControlFlow):
		return &HostError{Cause: err, Message: "later: control flow jump out of callback"}
	default:
		var hostErr *HostError
		if errors.As(err, &hostErr) {
			return err
		}
		return &HostError{Cause: err, Message: err.Error()}
	}
}

// execCallbacksOn drains due callbacks for reg's loop and its descendants.
//
// The pass waits up to timeoutSecs for something to become due, snapshots
// the clock once, then repeatedly pops and invokes this loop's due
// callbacks (a single one when runAll is false). Children are then drained
// recursively with runAll=true against the same snapshot, in insertion
// order, so a parent always drains before its children and the snapshot
// keeps work scheduled mid-pass out of this pass. Finally the table is
// pruned. Reports whether anything was due.
func execCallbacksOn(loopID int32, timeoutSecs float64, runAll bool) (bool, error) {
	assertMainThread("exec callbacks")
	reg := table.get(loopID)
	if reg == nil {
		return false, ErrNoSuchLoop
	}

	if !reg.wait(timeoutSecs, true) {
		return false, nil
	}

	dispatchState.execDepth++
	prevLoop := dispatchState.currentLoop
	dispatchState.currentLoop = loopID
	defer func() {
		dispatchState.currentLoop = prevLoop
		dispatchState.execDepth--
	}()

	ts := now()
	drainRegistry(reg, ts, runAll)
	table.prune()
	return true, nil
}

// drainRegistry pops and invokes reg's due callbacks at ts, then recurses
// into its children (always run-all) with the same ts.
func drainRegistry(reg *callbackRegistry, ts Timestamp, runAll bool) {
	for {
		reg.tbl.mu.Lock()
		cb := reg.popLocked(ts)
		reg.tbl.mu.Unlock()
		if cb == nil {
			break
		}
		logDebug("dispatch", "invoking callback", map[string]interface{}{"loop": reg.id, "callback": uint64(cb.id)})
		invokeCallback(cb)
		if !runAll {
			break
		}
	}

	// Snapshot the child list; callbacks may create or release loops.
	reg.tbl.mu.Lock()
	children := make([]*callbackRegistry, len(reg.children))
	copy(children, reg.children)
	reg.tbl.mu.Unlock()

	for _, child := range children {
		drainRegistry(child, ts, true)
	}
}

// idlePump is the top-level pump run on each host-idle firing of the
// global loop: repeat non-blocking exec passes until one drains nothing,
// bounded by the pump limit.
func idlePump() {
	for i := 0; i < dispatchState.pumpLimit; i++ {
		ran, err := execCallbacksOn(GlobalLoopID, 0, true)
		if err != nil || !ran {
			break
		}
	}
}

// nextOpSecsOn returns the seconds until the next scheduled operation on
// the loop (recursively), +Inf when nothing is queued or the loop is
// absent.
func nextOpSecsOn(loopID int32) float64 {
	t := table
	t.mu.Lock()
	defer t.mu.Unlock()
	reg := t.getLocked(loopID)
	if reg == nil {
		return math.Inf(1)
	}
	next, ok := reg.nextDeadlineLocked(true)
	if !ok {
		return math.Inf(1)
	}
	return next.DiffSecs(now())
}
