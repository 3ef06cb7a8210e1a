//go:build linux || freebsd || netbsd || openbsd || dragonfly || solaris

package socket

import "golang.org/x/sys/unix"

// newStreamSocket opens a stream socket with close-on-exec set
// atomically, so a concurrent fork never inherits it.
func newStreamSocket(family int) (int, error) {
	return unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}
