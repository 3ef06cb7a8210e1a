//go:build unix

package socket

import (
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Guard arms write-error-safe mode: once armed, a write to a peer that
// has gone away fails with EPIPE instead of raising SIGPIPE.  Arm is
// called after every successful connect and must be idempotent.
type Guard interface {
	Arm()
}

// ProcessGuard ignores SIGPIPE for the whole process the first time Arm
// is called.  The disposition is never restored: any caller relying on
// SIGPIPE delivery loses it after the first successful connect.
type ProcessGuard struct {
	once  sync.Once
	armed atomic.Bool
}

// Arm ignores SIGPIPE process-wide.  Subsequent calls are no-ops.
func (g *ProcessGuard) Arm() {
	g.once.Do(func() {
		signal.Ignore(syscall.SIGPIPE)
		g.armed.Store(true)
	})
}

// Armed reports whether Arm has taken effect.
func (g *ProcessGuard) Armed() bool { return g.armed.Load() }

var processGuard = &ProcessGuard{}

// DefaultGuard returns the process-wide guard used by connectors that
// do not set their own.
func DefaultGuard() *ProcessGuard { return processGuard }
