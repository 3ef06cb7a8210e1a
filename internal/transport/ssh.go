package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"ncdial/internal/metrics"
	"ncdial/internal/socket"
	"ncdial/tunnel"
	"ncdial/util"
)

// SSHDialer routes connections through an SSH gateway.  The tunnel is
// connected lazily on the first Dial, reconnected if it died, and torn
// down on Close.
type SSHDialer struct {
	tunnel    tunnel.Tunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer for the gateway in cfg.  Unless cfg
// supplies its own Dial, the gateway leg goes through the socket
// connector and is counted in m.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger, m *metrics.Collector) *SSHDialer {
	tun := tunnel.NewSSHTunnel(cfg, logger) // fills in ConnTimeout
	if cfg.Dial == nil {
		gw := &TCPDialer{Timeout: cfg.ConnTimeout, Logger: logger, Metrics: m}
		cfg.Dial = gw.Dial
	}
	return &SSHDialer{
		tunnel: tun,
		config: cfg,
		logger: logger,
	}
}

func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}
	if d.connected {
		d.logger.Verbose("SSH tunnel to %s lost, reconnecting", d.config.Host)
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the gateway.  Failures of the far
// leg are reported as *socket.ConnectError so that retries and scans
// treat them like direct connects.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	conn, err := d.tunnel.Dial(ctx, network, address)
	if err != nil {
		return nil, farLegError(ctx, network, address, err)
	}
	return conn, nil
}

// farLegError classifies a failed channel open.  Refusals by the
// gateway become ConnectFailed, context expiry Cancelled or TimedOut;
// anything else is returned unchanged.
func farLegError(ctx context.Context, network, address string, err error) error {
	host, port, _ := util.SplitAddr(network, address)
	ce := &socket.ConnectError{Host: host, Port: port, Err: err}

	var oce *ssh.OpenChannelError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		ce.Outcome = socket.TimedOut
	case ctx.Err() != nil:
		ce.Outcome = socket.Cancelled
	case errors.As(err, &oce) && oce.Reason == ssh.ConnectionFailed:
		ce.Outcome = socket.ConnectFailed
	default:
		return err
	}
	return ce
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
