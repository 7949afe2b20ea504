//go:build unix

package later

import (
	"math"

	"golang.org/x/sys/unix"
)

// pollErrMask is the per-fd error mask: any of these in revents maps the
// fd's result to FdResultNA.
const pollErrMask = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

// fdWaitSet is the worker's poll set: one pollfd per requested fd, in
// read|write|except order, matching the results layout.
type fdWaitSet struct {
	pfds     []unix.PollFd
	numRead  int
	numWrite int
}

func buildFdWaitSet(readFds, writeFds, exceptFds []int) *fdWaitSet {
	s := &fdWaitSet{
		pfds:     make([]unix.PollFd, 0, len(readFds)+len(writeFds)+len(exceptFds)),
		numRead:  len(readFds),
		numWrite: len(writeFds),
	}
	for _, fd := range readFds {
		s.pfds = append(s.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	for _, fd := range writeFds {
		s.pfds = append(s.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLOUT})
	}
	for _, fd := range exceptFds {
		// poll has no POLLEX; exceptional conditions surface as POLLPRI,
		// with ERR/HUP/NVAL reported regardless of what was requested.
		s.pfds = append(s.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLPRI})
	}
	return s
}

// results translates revents into the completion vocabulary. An error
// condition on the fd dominates readiness.
func (s *fdWaitSet) results() []int {
	out := make([]int, len(s.pfds))
	for i := range s.pfds {
		revents := s.pfds[i].Revents
		switch {
		case revents&pollErrMask != 0:
			out[i] = FdResultNA
		case i < s.numRead && revents&unix.POLLIN != 0:
			out[i] = FdReady
		case i >= s.numRead && i < s.numRead+s.numWrite && revents&unix.POLLOUT != 0:
			out[i] = FdReady
		case i >= s.numRead+s.numWrite && revents&unix.POLLPRI != 0:
			out[i] = FdReady
		default:
			out[i] = FdNotReady
		}
	}
	return out
}

// uniformResults fills every slot with code (all-NA on poll failure,
// all-not-ready on timeout).
func (s *fdWaitSet) uniformResults(code int) []int {
	out := make([]int, len(s.pfds))
	for i := range out {
		out[i] = code
	}
	return out
}

// execLaterFd spawns a background worker that waits for readiness on the
// given descriptors and schedules completion on loop loopID exactly once.
// Thread-safe.
func execLaterFd(loopID int32, readFds, writeFds, exceptFds []int, timeoutSecs float64, completion FdCompletion) (*FdCancelHandle, error) {
	reg := table.get(loopID)
	if reg == nil {
		return nil, ErrNoSuchLoop
	}

	h := newFdCancelHandle()
	set := buildFdWaitSet(readFds, writeFds, exceptFds)
	secs, infinite := normalizeFdTimeout(timeoutSecs)

	// The wait pins the registry as non-empty until it settles.
	reg.fdWaitsIncr()

	go fdWaitWorker(loopID, reg, set, h, secs, infinite, completion)
	return h, nil
}

// fdWaitWorker is the poll loop. Each iteration is bounded to roughly one
// second so cancellation is observed promptly; the shared active flag is
// checked before every poll and again by the scheduled completion.
func fdWaitWorker(loopID int32, reg *callbackRegistry, set *fdWaitSet, h *FdCancelHandle, timeoutSecs float64, infinite bool, completion FdCompletion) {
	start := now()
	for {
		if !h.active.Load() {
			// Cancelled before completion was scheduled: nothing runs.
			reg.fdWaitsDecr()
			return
		}

		slice := fdWaitSliceSecs
		if !infinite {
			remaining := timeoutSecs - now().DiffSecs(start)
			if remaining <= 0 {
				scheduleFdCompletion(loopID, reg, h, set.uniformResults(FdNotReady), completion)
				return
			}
			slice = math.Min(slice, remaining)
		}

		n, err := unix.Poll(set.pfds, int(slice*1000))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logError("fdwait", "poll failed", err, map[string]interface{}{"loop": loopID})
			scheduleFdCompletion(loopID, reg, h, set.uniformResults(FdResultNA), completion)
			return
		}
		if n > 0 {
			scheduleFdCompletion(loopID, reg, h, set.results(), completion)
			return
		}
	}
}

// scheduleFdCompletion routes the results onto the wait's loop through the
// ordinary callback pathway. The completion wrapper owns the fd-wait
// decrement and suppresses the user completion if the wait was cancelled
// after the worker finished.
func scheduleFdCompletion(loopID int32, reg *callbackRegistry, h *FdCancelHandle, results []int, completion FdCompletion) {
	id := table.scheduleFunc(loopID, func() error {
		defer reg.fdWaitsDecr()
		if !h.active.Load() {
			return nil
		}
		completion(results)
		return nil
	}, 0)
	if id == 0 {
		// Loop vanished before the completion could land; settle anyway.
		reg.fdWaitsDecr()
	}
}

// checkFdReady polls fds for readability once, blocking up to timeoutSecs
// (negative or infinite blocks indefinitely). Returns one bool per fd.
func checkFdReady(fds []int, timeoutSecs float64) ([]bool, error) {
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	timeoutMs := -1
	if timeoutSecs >= 0 && !math.IsInf(timeoutSecs, 1) {
		timeoutMs = int(timeoutSecs * 1000)
	}
	for {
		if _, err := unix.Poll(pfds, timeoutMs); err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		break
	}
	out := make([]bool, len(fds))
	for i := range pfds {
		out[i] = pfds[i].Revents&(unix.POLLIN|unix.POLLHUP) != 0
	}
	return out, nil
}
