//go:build unix && !linux

package socket

// fionread is _IOR('f', 127, int), FIONREAD on the BSDs and their
// descendants.  x/sys/unix does not export it.
const fionread = 0x4004667f
