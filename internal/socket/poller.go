//go:build unix

package socket

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller waits up to timeout for fd to become writable.  It returns
// ready=false with a nil error when the timeout elapses.  An interrupted
// wait must be reported as unix.EINTR so the caller can retry it.
type Poller interface {
	WaitWritable(fd int, timeout time.Duration) (ready bool, err error)
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(fd int, timeout time.Duration) (bool, error)

// WaitWritable calls f(fd, timeout).
func (f PollerFunc) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return f(fd, timeout)
}

// pollWaiter is the default Poller, built on poll(2).  Error and hangup
// conditions count as ready: the pending socket error tells them apart.
type pollWaiter struct{}

func (pollWaiter) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if fds[0].Revents&unix.POLLNVAL != 0 {
		return false, unix.EBADF
	}
	return true, nil
}
