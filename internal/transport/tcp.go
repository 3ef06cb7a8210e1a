package transport

import (
	"context"
	"net"
	"time"

	"ncdial/internal/metrics"
	"ncdial/internal/socket"
	"ncdial/util"
)

// TCPDialer establishes direct TCP connections through the cancellable
// socket connector, optionally binding to a specific source port.
type TCPDialer struct {
	Timeout   time.Duration // 0 = wait until the connect completes
	LocalPort int           // optional source-port binding (0 = ephemeral)
	NoDNS     bool
	Logger    *util.Logger
	Metrics   *metrics.Collector
}

// Dial connects to address over TCP.  Cancelling ctx aborts the
// attempt within one socket.WaitSlice.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	c := &socket.Connector{
		Timeout:   d.Timeout,
		LocalPort: d.LocalPort,
		NoDNS:     d.NoDNS,
		Logger:    d.Logger,
		Metrics:   d.Metrics,
	}
	return c.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
