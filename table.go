package later

import (
	"sync"
	"unsafe"
)

// GlobalLoopID is the id of the global loop: always present, the root the
// host's idle driver drains.
const GlobalLoopID int32 = 0

// tableEntry pairs a registry with the liveness of its host-side reference.
type tableEntry struct {
	reg          *callbackRegistry
	hostRefAlive bool
}

// registryTable is the process-wide mapping from loop id to registry. One
// mutex protects the table and every registry in it (see callbackRegistry);
// signal is the broadcast channel waiters block on, replaced on each
// signal so a close wakes every current waiter exactly once.
type registryTable struct {
	mu      sync.Mutex
	signal  chan struct{}
	entries map[int32]*tableEntry
}

func newRegistryTable() *registryTable {
	t := &registryTable{
		signal:  make(chan struct{}),
		entries: make(map[int32]*tableEntry),
	}
	// The global loop always exists and its host reference never dies.
	t.entries[GlobalLoopID] = &tableEntry{
		reg:          newCallbackRegistry(t, GlobalLoopID),
		hostRefAlive: true,
	}
	return t
}

// signalLocked wakes every goroutine blocked in callbackRegistry.wait.
func (t *registryTable) signalLocked() {
	close(t.signal)
	t.signal = make(chan struct{})
}

// exists reports whether a loop with the given id is live. Thread-safe.
func (t *registryTable) exists(id int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok
}

// get returns the registry for id, or nil. Thread-safe.
func (t *registryTable) get(id int32) *callbackRegistry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getLocked(id)
}

func (t *registryTable) getLocked(id int32) *callbackRegistry {
	if e, ok := t.entries[id]; ok {
		return e.reg
	}
	return nil
}

// create registers a new loop with the given id, optionally as a child of
// parentID (negative means no parent). Main goroutine only.
func (t *registryTable) create(id, parentID int32) error {
	assertMainThread("loop creation")
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[id]; ok {
		return ErrLoopAlreadyExists
	}

	var parent *callbackRegistry
	if parentID >= 0 {
		parent = t.getLocked(parentID)
		if parent == nil {
			return ErrParentMissing
		}
	}

	reg := newCallbackRegistry(t, id)
	reg.parent = parent
	if parent != nil {
		parent.children = append(parent.children, reg)
	}
	t.entries[id] = &tableEntry{reg: reg, hostRefAlive: true}
	logDebug("table", "loop created", map[string]interface{}{"loop": id, "parent": parentID})
	return nil
}

// scheduleNative inserts a native callback on loop id after delaySecs,
// returning the callback id, or 0 if the loop does not exist. Thread-safe;
// this is the path native extensions use from arbitrary threads.
func (t *registryTable) scheduleNative(id int32, fn NativeFunc, data unsafe.Pointer, delaySecs float64) CallbackID {
	if delaySecs < 0 {
		delaySecs = 0
	}
	cb := newNativeCallback(NewTimestamp(delaySecs), fn, data)
	return t.scheduleCallback(id, cb)
}

// scheduleFunc inserts an internal callback on loop id after delaySecs.
// Thread-safe; used for fd-wait completions.
func (t *registryTable) scheduleFunc(id int32, fn func() error, delaySecs float64) CallbackID {
	if delaySecs < 0 {
		delaySecs = 0
	}
	cb := newFuncCallback(NewTimestamp(delaySecs), fn)
	return t.scheduleCallback(id, cb)
}

// scheduleCallback resolves the registry, inserts, and signals. If the
// target's root is the global loop it also arranges a host-idle wakeup so
// the callback is picked up without host cooperation beyond idling.
func (t *registryTable) scheduleCallback(id int32, cb *callback) CallbackID {
	t.mu.Lock()
	reg := t.getLocked(id)
	if reg == nil {
		t.mu.Unlock()
		logDebug("table", "schedule on absent loop", map[string]interface{}{"loop": id})
		return 0
	}
	reg.addLocked(cb)
	root := reg
	for root.parent != nil {
		root = root.parent
	}
	wantWakeup := root.id == GlobalLoopID
	t.mu.Unlock()

	if wantWakeup {
		wakeup.requestWakeup(cb.when)
	}
	return cb.id
}

// cancel removes the queued callback with the given id from loop loopID,
// reporting whether it was removed. Main goroutine only.
func (t *registryTable) cancel(id CallbackID, loopID int32) bool {
	assertMainThread("callback cancellation")
	if id == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	reg := t.getLocked(loopID)
	if reg == nil {
		return false
	}
	return reg.cancelLocked(id)
}

// notifyHostRefReleased records that the host's reference to loop id has
// been collected, then prunes. Main goroutine only. Reports whether the
// loop was known.
func (t *registryTable) notifyHostRefReleased(id int32) bool {
	assertMainThread("loop handle release")
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	if id != GlobalLoopID {
		e.hostRefAlive = false
	}
	t.pruneLocked()
	return true
}

// prune removes unreachable registries. Main goroutine only.
func (t *registryTable) prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
}

// pruneLocked removes every registry whose host reference is dead, that has
// no outstanding fd-waits, and whose queue is empty or that has no parent.
// Removal
// unlinks the registry from its parent and orphans its children; orphaning
// can make children prunable in turn, so iterate to a fixpoint. Pending
// callbacks in a pruned registry are dropped without invocation.
func (t *registryTable) pruneLocked() {
	for {
		var victim *tableEntry
		var victimID int32
		for id, e := range t.entries {
			if e.hostRefAlive {
				continue
			}
			// Outstanding fd-waits pin the registry regardless of parentage:
			// their completions still need somewhere to land.
			if e.reg.fdWaits.Load() > 0 {
				continue
			}
			if e.reg.queue.Len() == 0 || e.reg.parent == nil {
				victim, victimID = e, id
				break
			}
		}
		if victim == nil {
			return
		}
		t.removeLocked(victimID, victim.reg)
	}
}

// removeLocked unlinks reg from the forest and drops it from the table.
func (t *registryTable) removeLocked(id int32, reg *callbackRegistry) {
	if p := reg.parent; p != nil {
		for i, child := range p.children {
			if child == reg {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		reg.parent = nil
	}
	for _, child := range reg.children {
		child.parent = nil
	}
	reg.children = nil
	delete(t.entries, id)
	logDebug("table", "loop pruned", map[string]interface{}{"loop": id, "dropped": reg.queue.Len()})
}

// deleteLoop explicitly removes loop id. The global loop, the current
// loop, and loops with outstanding fd-waits are refused. Main goroutine
// only.
func (t *registryTable) deleteLoop(id, currentLoop int32) error {
	assertMainThread("loop deletion")
	if id == GlobalLoopID || id == currentLoop {
		return ErrInvalidState
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return ErrNoSuchLoop
	}
	if e.reg.fdWaits.Load() > 0 {
		return ErrInvalidState
	}
	t.removeLocked(id, e.reg)
	return nil
}
