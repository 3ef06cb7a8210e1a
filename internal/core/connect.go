package core

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"ncdial/internal/capability"
	ncerr "ncdial/internal/errors"
	"ncdial/internal/metrics"
	"ncdial/internal/retry"
	"ncdial/internal/session"
	"ncdial/internal/transport"
	"ncdial/util"
)

// ConnectMode dials a remote address and runs a capability on the
// resulting connection, the default client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Network    string
	Address    string
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Retry re-runs the whole connect after a retryable failure.  Nil
	// means a single attempt.
	Retry *retry.Backoff

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *ConnectMode) backoff() *retry.Backoff {
	b := retry.Backoff{MaxAttempts: 1}
	if m.Retry != nil {
		b = *m.Retry
	}
	b.Retryable = retryable
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Verbose("attempt %d: %v; retrying in %s", attempt, err, wait.Round(time.Millisecond))
	}
	return &b
}

// retryable allows another attempt only for timeouts and refused or
// unreachable targets.  A cancel is the user's decision.
func retryable(err error) bool {
	return !ncerr.IsCancelled(err) && ncerr.IsRetryable(err)
}

// Run dials the remote address, creates a session, and hands it to
// the capability.  The transport is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s (%s)", m.Address, m.Network)

	var conn net.Conn
	err := m.backoff().Do(ctx, func(int) error {
		c, err := m.Dialer.Dial(ctx, m.Network, m.Address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		m.Metrics.RecordError(err.Error())
		return err
	}
	defer conn.Close()

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()
	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger).WithMetrics(m.Metrics)
	return m.Capability.Handle(ctx, sess)
}
