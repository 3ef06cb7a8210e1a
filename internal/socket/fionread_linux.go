package socket

import "golang.org/x/sys/unix"

// fionread is the ioctl reporting bytes queued for reading.
const fionread = unix.TIOCINQ
