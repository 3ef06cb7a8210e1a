//go:build unix

package socket

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"ncdial/internal/metrics"
	"ncdial/util"
)

// WaitSlice is the longest a connect attempt blocks in a single
// readiness wait.  It bounds how late a cancel is noticed.
const WaitSlice = 100 * time.Millisecond

var quietLogger = util.NewLogger(0)

// Connector performs single-attempt TCP connects.  The zero value is
// ready to use.  A Connector holds no per-attempt state and may be
// shared between goroutines.
type Connector struct {
	// Timeout caps DialContext attempts in addition to any context
	// deadline.  Zero means no cap.  Connect takes its budget as an
	// argument instead.
	Timeout time.Duration

	// LocalPort binds the socket to a fixed source port (0 = ephemeral).
	LocalPort int

	// NoDNS rejects hosts that are not literal IP addresses.
	NoDNS bool

	Poller  Poller             // readiness wait; poll(2) when nil
	Guard   Guard              // write-error-safe mode; DefaultGuard() when nil
	Lookup  LookupFunc         // host resolution; net.LookupIP when nil
	Logger  *util.Logger       // optional
	Metrics *metrics.Collector // optional

	// connect issues connect(2); replaced in tests.
	connect func(fd int, sa unix.Sockaddr) error
}

// Connect makes one attempt to connect to host:port.
//
// timeoutMs is the wait budget in milliseconds; zero or negative waits
// until the connect completes, fails, or cancel is set.  Name
// resolution is not charged against the budget.
//
// On success the returned Handle is in blocking mode and the Guard has
// been armed.  On failure the error is a *ConnectError and no
// descriptor is left open.
func (c *Connector) Connect(host string, port, timeoutMs int, cancel *CancelFlag) (Handle, error) {
	start := time.Now()
	h, err := c.attempt(host, port, timeoutMs, cancel)
	c.Metrics.RecordConnect(OutcomeOf(err).String(), time.Since(start))
	return h, err
}

// DialContext connects to address ("host:port") and returns the
// connection as a net.Conn, so a Connector can stand in for a
// net.Dialer.  Cancelling ctx sets the attempt's cancel flag; the
// budget is the shorter of c.Timeout and the time left until the
// context deadline.
func (c *Connector) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("socket: unsupported network %q", network)
	}
	host, port, err := util.SplitAddr(network, address)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		err := contextOutcome(ctx, &ConnectError{Outcome: Cancelled, Host: host, Port: port})
		c.Metrics.RecordConnect(OutcomeOf(err).String(), 0)
		return nil, err
	}

	cancel := NewCancelFlag()
	stop := cancel.Bind(ctx)
	defer stop()

	start := time.Now()
	h, err := c.attempt(host, port, c.budget(ctx), cancel)
	if err != nil {
		err = contextOutcome(ctx, err)
	}
	c.Metrics.RecordConnect(OutcomeOf(err).String(), time.Since(start))
	if err != nil {
		return nil, err
	}
	return h.Conn()
}

// budget converts c.Timeout and the context deadline into milliseconds,
// rounding up so that a short positive deadline never reads as
// "wait forever".
func (c *Connector) budget(ctx context.Context) int {
	timeout := c.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = max(left, time.Millisecond)
		}
	}
	if timeout <= 0 {
		return 0
	}
	if timeout > math.MaxInt32*time.Millisecond {
		return math.MaxInt32
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

// contextOutcome attributes a cancellation caused by ctx to ctx: an
// expired deadline becomes TimedOut, and the context error is attached.
func contextOutcome(ctx context.Context, err error) error {
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.Outcome != Cancelled || ctx.Err() == nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ce.Outcome = TimedOut
	}
	ce.Err = ctx.Err()
	return ce
}

func (c *Connector) attempt(host string, port, timeoutMs int, cancel *CancelFlag) (Handle, error) {
	log := c.log()
	fail := func(o Outcome, err error) (Handle, error) {
		log.Debug("connect %s:%d: %s", host, port, o)
		return InvalidHandle, &ConnectError{Outcome: o, Host: host, Port: port, Err: err}
	}

	ep, err := resolve(host, port, c.NoDNS, c.lookup())
	if err != nil {
		return fail(ResolutionFailed, err)
	}

	h, err := ep.Socket()
	if err != nil {
		return fail(SocketCreateFailed, err)
	}
	log.Debug("socket %d for %s", h, ep)

	if c.LocalPort > 0 {
		if err := h.bindPort(ep.Family, c.LocalPort); err != nil {
			h.Close()
			return fail(SocketCreateFailed, fmt.Errorf("bind source port %d: %w", c.LocalPort, err))
		}
	}
	if err := h.SetBlocking(false); err != nil {
		h.Close()
		return fail(SocketCreateFailed, err)
	}

	err = c.connectFunc()(h.FD(), ep.Addr)
	switch {
	case err == nil:
		log.Debug("connect %s completed immediately", ep)
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EINTR):
		// EINTR leaves the connect running in the background, exactly
		// like EINPROGRESS.
		if o, err := c.await(h, timeoutMs, cancel); o != Connected {
			h.Close()
			return fail(o, err)
		}
	default:
		h.Close()
		return fail(ConnectFailed, err)
	}

	if err := h.SetBlocking(true); err != nil {
		h.Close()
		return fail(SocketCreateFailed, err)
	}
	c.guard().Arm()
	log.Debug("connected to %s on socket %d", ep, h)
	return h, nil
}

// await runs the bounded readiness loop for an in-progress connect.
// It returns Connected once the handle is writable with no pending
// error, or the terminal Outcome otherwise.  It never closes h.
func (c *Connector) await(h Handle, timeoutMs int, cancel *CancelFlag) (Outcome, error) {
	poller := c.poller()
	infinite := timeoutMs <= 0
	remaining := timeoutMs
	maxSlice := int(WaitSlice / time.Millisecond)

	for {
		if cancel.Cancelled() {
			return Cancelled, nil
		}

		slice := maxSlice
		if !infinite && remaining < slice {
			slice = remaining
		}

		ready, err := poller.WaitWritable(h.FD(), time.Duration(slice)*time.Millisecond)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return WaitFailed, err
		case ready:
			if err := h.pendingError(); err != nil {
				return ConnectFailed, err
			}
			return Connected, nil
		case infinite:
			continue
		}

		remaining -= slice
		if remaining <= 0 {
			return TimedOut, nil
		}
	}
}

// ── defaults ─────────────────────────────────────────────────────────

func (c *Connector) log() *util.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return quietLogger
}

func (c *Connector) poller() Poller {
	if c.Poller != nil {
		return c.Poller
	}
	return pollWaiter{}
}

func (c *Connector) guard() Guard {
	if c.Guard != nil {
		return c.Guard
	}
	return processGuard
}

func (c *Connector) lookup() LookupFunc {
	if c.Lookup != nil {
		return c.Lookup
	}
	return net.LookupIP
}

func (c *Connector) connectFunc() func(int, unix.Sockaddr) error {
	if c.connect != nil {
		return c.connect
	}
	return unix.Connect
}
