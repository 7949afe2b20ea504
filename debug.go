package later

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// assertionsEnabled gates the main-thread assertions. Off by default; flip
// on in development and tests to catch misuse of main-thread-only
// operations from other goroutines.
var assertionsEnabled atomic.Bool

// SetAssertionsEnabled enables or disables runtime main-thread assertions.
func SetAssertionsEnabled(enabled bool) {
	assertionsEnabled.Store(enabled)
}

// mainGoroutineID is the goroutine designated as the host's main thread,
// captured by EnsureInitialized. Zero until initialization.
var mainGoroutineID atomic.Uint64

// assertMainThread panics when assertions are enabled and the caller is not
// the designated main goroutine. Before initialization it is a no-op: the
// main goroutine has not been designated yet.
func assertMainThread(op string) {
	if !assertionsEnabled.Load() {
		return
	}
	main := mainGoroutineID.Load()
	if main == 0 {
		return
	}
	if id := getGoroutineID(); id != main {
		panic(fmt.Sprintf("later: %s called from goroutine %d, want main goroutine %d", op, id, main))
	}
}

// isMainThread reports whether the caller is the designated main goroutine.
// Returns false before initialization.
func isMainThread() bool {
	main := mainGoroutineID.Load()
	return main != 0 && getGoroutineID() == main
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
