// Package config defines the runtime configuration for ncdial and provides
// helpers for parsing tunnel specifications and port ranges.
package config

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "ncdial/internal/errors"
)

// Config holds every tuneable for a single ncdial run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string
	Port      int         // primary destination port
	Ports     []PortRange // all destination port specs (scanning)
	LocalPort int         // -p: source port to bind before connecting
	Timeout   time.Duration
	NoDNS     bool
	Retries   int // extra connect attempts after a retryable failure

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string
	KeepAlive      time.Duration // SSH keepalive interval (0 = off)

	// ── Execution ────────────────────────────────────────────────────
	Execute string // -e: program path
	Command string // -c: shell command

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	ZeroIO  bool
}

// TimeoutMillis returns Timeout as a connect budget in milliseconds,
// rounded up and clamped to the int32 range.  Zero means no limit.
func (c *Config) TimeoutMillis() int {
	if c.Timeout <= 0 {
		return 0
	}
	if c.Timeout > math.MaxInt32*time.Millisecond {
		return math.MaxInt32
	}
	return int((c.Timeout + time.Millisecond - 1) / time.Millisecond)
}

// ── Port helpers ─────────────────────────────────────────────────────

// PortRange is an inclusive start–end pair.
type PortRange struct {
	Start int
	End   int
}

// Expand returns every port in the range.
func (pr PortRange) Expand() []int {
	out := make([]int, 0, pr.End-pr.Start+1)
	for p := pr.Start; p <= pr.End; p++ {
		out = append(out, p)
	}
	return out
}

// AllPorts flattens every PortRange into a single slice.
func (c *Config) AllPorts() []int {
	var out []int
	for _, pr := range c.Ports {
		out = append(out, pr.Expand()...)
	}
	return out
}

// ParsePortSpec accepts "80", "80-90", or a service name such as "http".
func ParsePortSpec(spec string) (PortRange, error) {
	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range start %q", parts[0])
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range end %q", parts[1])
		}
		if start < 1 || end > 65535 || start > end {
			return PortRange{}, fmt.Errorf("invalid port range %d-%d", start, end)
		}
		return PortRange{Start: start, End: end}, nil
	}

	port, err := strconv.Atoi(spec)
	if err != nil {
		named, lerr := net.LookupPort("tcp", spec)
		if lerr != nil || spec == "" {
			return PortRange{}, fmt.Errorf("invalid port %q", spec)
		}
		port = named
	}
	if port < 1 || port > 65535 {
		return PortRange{}, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return PortRange{Start: port, End: port}, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are reported as *errors.ConfigError with a usage hint.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "usage: ncdial [options] <host> <port>",
		}
	}
	if c.Port == 0 && len(c.Ports) == 0 {
		return &ncerr.ConfigError{
			Field:   "port",
			Message: "destination port is required",
			Hint:    "give a port, a range such as 20-25, or a service name",
		}
	}
	if c.NoDNS && net.ParseIP(c.Host) == nil {
		return &ncerr.ConfigError{
			Field:   "no-dns",
			Value:   c.Host,
			Message: "host is not a numeric IP address",
			Hint:    "drop -n or pass an IPv4/IPv6 literal",
		}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.LocalPort,
			Message: "source port out of range 1-65535",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "timeout cannot be negative",
			Hint:    "use 0 to wait until the connect completes",
		}
	}
	if c.Retries < 0 {
		return &ncerr.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "retry count cannot be negative",
		}
	}

	if c.Execute != "" && c.Command != "" {
		return &ncerr.ConfigError{
			Field:   "exec",
			Message: "-e and -c are mutually exclusive",
		}
	}
	if c.ZeroIO && (c.Execute != "" || c.Command != "") {
		return &ncerr.ConfigError{
			Field:   "zero-io",
			Message: "scan mode does not run programs",
			Hint:    "drop -e/-c or -z",
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Message: "tunnel host is required",
			Hint:    "use -T [user@]host[:port]",
		}
	}
	if !c.TunnelEnabled && c.KeepAlive > 0 {
		return &ncerr.ConfigError{
			Field:   "keep-alive",
			Value:   c.KeepAlive,
			Message: "keepalive only applies to SSH tunnels",
			Hint:    "add -T [user@]host[:port]",
		}
	}

	return nil
}
