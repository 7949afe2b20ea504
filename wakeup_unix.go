//go:build unix

package later

import (
	"golang.org/x/sys/unix"
)

// createWakePipe creates the non-blocking wake pipe. A plain pipe rather
// than an eventfd: the host input-handler contract needs a readable fd on
// every POSIX host, and one byte at a time is all the hot/cold protocol
// ever carries.
func createWakePipe() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// closeWakePipe closes both ends of the wake pipe.
func closeWakePipe(readFd, writeFd int) {
	if readFd >= 0 {
		_ = unix.Close(readFd)
	}
	if writeFd >= 0 && writeFd != readFd {
		_ = unix.Close(writeFd)
	}
}

// drainWakePipe reads until the pipe is empty.
func drainWakePipe(fd int) {
	var buf [64]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			break
		}
	}
}

// writeWakeByte writes the single signal byte.
func writeWakeByte(fd int) error {
	_, err := unix.Write(fd, []byte{'a'})
	if err == unix.EAGAIN {
		// Pipe full: a wakeup is already pending, which is all we need.
		return nil
	}
	return err
}

// wakePipeSupported reports that the pipe mechanism is available.
func wakePipeSupported() bool {
	return true
}
