package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the NCDIAL_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("NCDIAL_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("NCDIAL_SOURCE_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("NCDIAL_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("NCDIAL_TIMEOUT"); v > 0 {
		cfg.Timeout = Scale(v, time.Second)
	}
	if v := envInt("NCDIAL_TIMEOUT_MS"); v > 0 {
		cfg.Timeout = Scale(v, time.Millisecond)
	}
	if v := envInt("NCDIAL_RETRIES"); v > 0 {
		cfg.Retries = v
	}

	// SSH tunnel
	if v := os.Getenv("NCDIAL_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("NCDIAL_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("NCDIAL_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("NCDIAL_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("NCDIAL_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("NCDIAL_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v := envInt("NCDIAL_KEEP_ALIVE"); v > 0 {
		cfg.KeepAlive = Scale(v, time.Second)
	}

	// Output
	if v := envInt("NCDIAL_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// Scale returns n units as a Duration, saturating at the int64 limits
// instead of wrapping.
func Scale(n int, unit time.Duration) time.Duration {
	limit := int64(math.MaxInt64 / unit)
	switch {
	case int64(n) > limit:
		return math.MaxInt64
	case int64(n) < -limit:
		return math.MinInt64
	}
	return time.Duration(n) * unit
}
