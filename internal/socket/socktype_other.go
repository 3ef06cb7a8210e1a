//go:build unix && !(linux || freebsd || netbsd || openbsd || dragonfly || solaris)

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// newStreamSocket opens a stream socket and marks it close-on-exec
// while holding ForkLock, the same exclusion os/exec forks under.
func newStreamSocket(family int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}
