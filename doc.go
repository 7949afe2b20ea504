// Package later provides a cooperative, single-consumer deferred-callback
// scheduler designed to be embedded in a host interpreter whose application
// code runs on one designated "main" goroutine.
//
// # Model
//
// Work is scheduled onto named loops (callback registries) identified by
// small integers. Loop 0 is the global loop and always exists. Loops form a
// forest: draining a loop also drains its descendants, parent before child,
// siblings in creation order. Within a loop, callbacks run in deadline order
// with FIFO tie-breaking via a process-wide monotonic callback id.
//
// Callbacks are only ever invoked on the main goroutine, one at a time, at
// host-defined safe points. The native scheduling path (ExecLaterNative),
// fd-wait creation and fd-wait cancellation are permitted from any
// goroutine; the host-callback path (ExecLater) is main goroutine only,
// because host callbacks hold host-managed state.
//
// # Wakeup
//
// The host signals quiescence through its idle mechanism. On POSIX-style
// hosts the package maintains a non-blocking wake pipe; the host registers
// IdleHandlerFd with its input-handler table and calls HandleIdleReady when
// the descriptor becomes readable. The package writes to the pipe only when
// it is "cold", collapsing redundant wakeup requests.
//
// # Fd-waits
//
// ExecLaterFd spawns a short-lived background poller that watches a set of
// file descriptors and schedules a completion callback on a loop when one
// becomes ready, the timeout elapses, or polling fails. A wait cancelled
// with FdCancel never invokes its completion. The loop is considered
// non-empty while such waits are outstanding.
//
// # Safety
//
// Main-thread-only operations (loop creation, cancellation of queued
// callbacks, dispatch) are documented as such; optional runtime assertions
// can be enabled with SetAssertionsEnabled to catch misuse during
// development.
package later
