package later

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyExists is returned when CreateLoop is called with an id
	// that is already present in the registry table.
	ErrLoopAlreadyExists = errors.New("later: loop already exists")

	// ErrNoSuchLoop is returned by operations against an absent loop.
	ErrNoSuchLoop = errors.New("later: no such loop")

	// ErrParentMissing is returned when CreateLoop references an unknown
	// parent loop.
	ErrParentMissing = errors.New("later: parent loop does not exist")

	// ErrInvalidState is returned when an operation is not permitted in the
	// current state, e.g. deleting the global loop, the current loop, or a
	// loop with outstanding fd-waits.
	ErrInvalidState = errors.New("later: operation not permitted in current state")

	// ErrInterrupted indicates a host-level interrupt was raised while a
	// callback was running. It is reported through the host's diagnostic
	// channel; dispatch continues with the next callback.
	ErrInterrupted = errors.New("later: callback interrupted")

	// ErrNonExceptionalControlFlow indicates a control-flow jump (a
	// longjmp-style exit across the host boundary) escaped a callback. The
	// dispatcher contains it and treats it as a host error.
	ErrNonExceptionalControlFlow = errors.New("later: non-exceptional control flow out of callback")

	// ErrThreadCreateFailed mirrors the error surface of hosts whose fd-wait
	// workers are OS threads. Goroutine creation does not fail, so this is
	// never returned; it exists for API parity with host glue layers.
	ErrThreadCreateFailed = errors.New("later: failed to create fd-wait worker")

	// ErrFdWaitUnsupported is returned by ExecLaterFd and CheckFdReady on
	// platforms without a poll-style readiness primitive.
	ErrFdWaitUnsupported = errors.New("later: fd-wait is not supported on this platform")
)

// HostError wraps an error raised by host code inside a callback. It is
// absorbed at the dispatch boundary and reported through the host's
// diagnostic channel; one failing callback never drops its siblings.
type HostError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *HostError) Error() string {
	if e.Message == "" {
		return "later: host error in callback"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *HostError) Unwrap() error {
	return e.Cause
}

// NativeError wraps a failure in native code, including a panic contained
// at the dispatch boundary from any callback variant.
type NativeError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *NativeError) Error() string {
	if e.Message == "" {
		return "later: native error in callback"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *NativeError) Unwrap() error {
	return e.Cause
}

// PanicError contains a panic recovered at the dispatch boundary.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("later: callback panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] through the cause chain.
// If the panic Value is not an error, returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
