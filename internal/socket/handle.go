//go:build unix

package socket

import (
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Handle is a raw stream-socket descriptor.  Once returned by a
// successful connect it belongs to the caller, who must Close it or
// pass it on with Conn.
type Handle int

// InvalidHandle is returned alongside every error.
const InvalidHandle Handle = -1

// FD returns the descriptor as an int.
func (h Handle) FD() int { return int(h) }

// SetBlocking switches the descriptor between blocking and
// non-blocking I/O.
func (h Handle) SetBlocking(enabled bool) error {
	return unix.SetNonblock(int(h), !enabled)
}

// Blocking reports whether the descriptor is in blocking mode.
func (h Handle) Blocking() (bool, error) {
	flags, err := unix.FcntlInt(uintptr(h), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK == 0, nil
}

// BytesAvailable returns how many bytes can be read without blocking.
func (h Handle) BytesAvailable() (int, error) {
	return unix.IoctlGetInt(int(h), fionread)
}

// Close releases the descriptor.
func (h Handle) Close() error {
	if h < 0 {
		return unix.EBADF
	}
	return unix.Close(int(h))
}

// Conn hands the descriptor to the Go runtime as a net.Conn.  The
// runtime takes a duplicate; h itself is closed whether or not the
// conversion succeeds, so h must not be used afterwards.
func (h Handle) Conn() (net.Conn, error) {
	f := os.NewFile(uintptr(h), fmt.Sprintf("tcp:%d", h))
	defer f.Close()
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("wrap descriptor %d: %w", h, err)
	}
	return conn, nil
}

// pendingError fetches SO_ERROR, the deferred result of a non-blocking
// connect.
func (h Handle) pendingError() error {
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// bindPort binds the descriptor to the wildcard address of family on
// the given source port.
func (h Handle) bindPort(family, port int) error {
	if err := unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	var sa unix.Sockaddr = &unix.SockaddrInet4{Port: port}
	if family == unix.AF_INET6 {
		sa = &unix.SockaddrInet6{Port: port}
	}
	return unix.Bind(int(h), sa)
}

// Available returns the number of bytes readable without blocking on a
// connection that is already managed by the Go runtime.
func Available(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("%T does not expose its descriptor", conn)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n    int
		ioct error
	)
	if err := rc.Control(func(fd uintptr) {
		n, ioct = unix.IoctlGetInt(int(fd), fionread)
	}); err != nil {
		return 0, err
	}
	return n, ioct
}
