package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "ncdial/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"dashes", "user@host-with-dashes", "user", "host-with-dashes", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"no host before colon", ":22", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

// ── ParsePortSpec ────────────────────────────────────────────────────

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		input     string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"80", 80, 80, false},
		{"443", 443, 443, false},
		{"80-90", 80, 90, false},
		{"1-65535", 1, 65535, false},
		{"http", 80, 80, false},
		{"0", 0, 0, true},
		{"70000", 0, 0, true},
		{"not-a-port", 0, 0, true},
		{"no_such_service", 0, 0, true},
		{"90-80", 0, 0, true}, // reversed range
		{"0-100", 0, 0, true}, // start below 1
		{"1-", 0, 0, true},
		{"-", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pr, err := ParsePortSpec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PortRange{Start: tt.wantStart, End: tt.wantEnd}, pr)
		})
	}
}

// ── PortRange.Expand ─────────────────────────────────────────────────

func TestPortRangeExpand(t *testing.T) {
	pr := PortRange{Start: 20, End: 25}
	assert.Equal(t, []int{20, 21, 22, 23, 24, 25}, pr.Expand())
}

func TestAllPorts(t *testing.T) {
	cfg := &Config{Ports: []PortRange{{22, 22}, {80, 82}}}
	assert.Equal(t, []int{22, 80, 81, 82}, cfg.AllPorts())
}

// ── TimeoutMillis ────────────────────────────────────────────────────

func TestTimeoutMillis(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    int
	}{
		{0, 0},
		{-time.Second, 0},
		{3 * time.Second, 3000},
		{1500 * time.Microsecond, 2},
		{time.Duration(math.MaxInt64), math.MaxInt32},
		{math.MaxInt32 * time.Millisecond, math.MaxInt32},
		{math.MaxInt32*time.Millisecond + 1, math.MaxInt32},
		{math.MaxInt32*time.Millisecond - time.Microsecond, math.MaxInt32},
	}
	for _, tt := range tests {
		cfg := &Config{Timeout: tt.timeout}
		assert.Equal(t, tt.want, cfg.TimeoutMillis(), tt.timeout.String())
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string // empty means valid
	}{
		{"valid connect", Config{Host: "example.com", Port: 80}, ""},
		{"valid scan", Config{Host: "10.0.0.1", Ports: []PortRange{{20, 25}}, ZeroIO: true}, ""},
		{"valid tunnel", Config{Host: "db", Port: 5432, TunnelEnabled: true, TunnelHost: "gw", KeepAlive: time.Second}, ""},
		{"valid numeric no-dns", Config{Host: "::1", Port: 22, NoDNS: true}, ""},
		{"no host", Config{Port: 80}, "host"},
		{"no port", Config{Host: "x"}, "port"},
		{"no-dns with name", Config{Host: "example.com", Port: 80, NoDNS: true}, "no-dns"},
		{"source port range", Config{Host: "x", Port: 80, LocalPort: 70000}, "port"},
		{"negative timeout", Config{Host: "x", Port: 80, Timeout: -time.Second}, "timeout"},
		{"negative retries", Config{Host: "x", Port: 80, Retries: -1}, "retries"},
		{"exec conflict", Config{Host: "x", Port: 80, Execute: "a", Command: "b"}, "exec"},
		{"scan with exec", Config{Host: "x", Port: 80, ZeroIO: true, Execute: "/bin/cat"}, "zero-io"},
		{"tunnel no host", Config{Host: "x", Port: 80, TunnelEnabled: true}, "tunnel"},
		{"keepalive without tunnel", Config{Host: "x", Port: 80, KeepAlive: time.Second}, "keep-alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ncerr.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestValidate_Hints(t *testing.T) {
	err := (&Config{Port: 80}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hint:")

	err = (&Config{Host: "x", Port: 80, Execute: "a", Command: "b"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-e and -c are mutually exclusive")
}
