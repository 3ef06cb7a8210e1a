package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultScanTimeout is the per-port timeout for port scanning when
	// no -w is given.
	DefaultScanTimeout = 3 * time.Second

	// DefaultMaxConcurrentScans limits the number of simultaneous
	// probes to prevent descriptor exhaustion.
	DefaultMaxConcurrentScans = 100

	// DefaultSSHTimeout bounds the SSH gateway connect and handshake.
	DefaultSSHTimeout = 30 * time.Second

	// DefaultRetryDelay is the wait before the first connect retry.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff between
	// connect retries.
	DefaultMaxRetryDelay = 10 * time.Second
)
