//go:build !unix

package later

// Platforms without a poll-style readiness primitive refuse fd-waits; the
// host glue is expected to provide its own readiness integration there.

func execLaterFd(loopID int32, readFds, writeFds, exceptFds []int, timeoutSecs float64, completion FdCompletion) (*FdCancelHandle, error) {
	return nil, ErrFdWaitUnsupported
}

func checkFdReady(fds []int, timeoutSecs float64) ([]bool, error) {
	return nil, ErrFdWaitUnsupported
}
