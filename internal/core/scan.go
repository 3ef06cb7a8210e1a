package core

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"ncdial/config"
	ncerr "ncdial/internal/errors"
	"ncdial/internal/metrics"
	"ncdial/internal/socket"
	"ncdial/internal/transport"
	"ncdial/util"
)

// DialFunc establishes a network connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ScanResult records the outcome of probing a single port.
type ScanResult struct {
	Port    int
	Open    bool
	Outcome socket.Outcome
	Pending int // bytes the service sent unprompted (banner), if measured
	Err     error
}

// ScanMode probes a set of TCP ports on a target host and reports
// which are open.
type ScanMode struct {
	Dialer  transport.Dialer
	Host    string
	Ports   []int
	Timeout time.Duration
	Logger  *util.Logger
	Metrics *metrics.Collector
	Verbose int

	// BannerWait is how long an open port is watched for unprompted
	// bytes before it is closed.  Zero skips the check.
	BannerWait time.Duration
}

// Run scans all configured ports and logs the results.  The
// underlying transport is closed when Run returns.
func (m *ScanMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if len(m.Ports) == 0 {
		return ncerr.ErrNoPorts
	}

	timeout := m.Timeout
	if timeout == 0 {
		timeout = config.DefaultScanTimeout
	}

	m.Logger.Verbose("scanning %s - %d port(s)", m.Host, len(m.Ports))

	results := ScanPorts(ctx, m.Host, m.Ports, timeout, m.BannerWait, m.Dialer.Dial)

	open := 0
	for _, r := range results {
		switch {
		case r.Open && r.Pending > 0:
			open++
			m.Logger.Info("%s %d/tcp open (%d byte banner pending)", m.Host, r.Port, r.Pending)
		case r.Open:
			open++
			m.Logger.Info("%s %d/tcp open", m.Host, r.Port)
		case m.Verbose >= 2:
			m.Logger.Verbose("%s %d/tcp %s: %v", m.Host, r.Port, r.Outcome, r.Err)
		}
		if r.Err != nil && r.Outcome != socket.ConnectFailed && r.Outcome != socket.TimedOut {
			m.Metrics.RecordError(r.Err.Error())
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if open == 0 && m.Verbose >= 1 {
		m.Logger.Info("no open ports found on %s", m.Host)
	}
	return nil
}

// ScanPorts probes every port concurrently, at most
// config.DefaultMaxConcurrentScans at a time, and returns results in
// the same order as the input slice.  With a positive bannerWait each
// open connection is watched that long for bytes the service sends
// before it is spoken to.
func ScanPorts(ctx context.Context, host string, ports []int, timeout, bannerWait time.Duration, dial DialFunc) []ScanResult {
	results := make([]ScanResult, len(ports))

	var g errgroup.Group
	g.SetLimit(config.DefaultMaxConcurrentScans)

	for i, port := range ports {
		i, port := i, port
		g.Go(func() error {
			addr := util.FormatAddr(host, port)
			scanCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			conn, err := dial(scanCtx, "tcp", addr)
			if err != nil {
				results[i] = ScanResult{Port: port, Outcome: socket.OutcomeOf(err), Err: err}
				return nil
			}
			defer conn.Close()

			results[i] = ScanResult{Port: port, Open: true, Outcome: socket.Connected}
			if bannerWait > 0 {
				results[i].Pending = pendingBytes(conn, bannerWait)
			}
			return nil
		})
	}

	g.Wait() //nolint:errcheck
	return results
}

// pendingBytes polls the connection's receive queue for up to wait.
// Connections without a descriptor (SSH channels) report zero.
func pendingBytes(conn net.Conn, wait time.Duration) int {
	deadline := time.Now().Add(wait)
	for {
		n, err := socket.Available(conn)
		if err != nil || n > 0 || !time.Now().Before(deadline) {
			return n
		}
		time.Sleep(10 * time.Millisecond)
	}
}
