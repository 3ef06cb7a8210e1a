package core

import (
	"time"

	"ncdial/config"
	"ncdial/internal/capability"
	"ncdial/internal/metrics"
	"ncdial/internal/retry"
	"ncdial/internal/transport"
	"ncdial/tunnel"
	"ncdial/util"
)

// bannerWait is how long -z -vv watches an open port for a banner.
const bannerWait = 250 * time.Millisecond

// Build constructs the appropriate Mode from the given configuration.
// The collector may be nil.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ZeroIO {
		return buildScan(cfg, logger, m), nil
	}
	return buildConnect(cfg, logger, m), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	return &ConnectMode{
		Dialer:     buildDialer(cfg, cfg.Timeout, logger, m),
		Capability: buildCapability(cfg),
		Network:    "tcp",
		Address:    util.FormatAddr(cfg.Host, cfg.Port),
		Logger:     logger,
		Metrics:    m,
		Retry:      buildRetry(cfg),
	}
}

func buildScan(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	ports := cfg.AllPorts()
	if len(ports) == 0 && cfg.Port > 0 {
		ports = []int{cfg.Port}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultScanTimeout
	}

	mode := &ScanMode{
		Dialer:  buildDialer(cfg, timeout, logger, m),
		Host:    cfg.Host,
		Ports:   ports,
		Timeout: timeout,
		Logger:  logger,
		Metrics: m,
		Verbose: cfg.Verbose,
	}
	if cfg.Verbose >= 2 {
		mode.BannerWait = bannerWait
	}
	return mode
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, timeout time.Duration, logger *util.Logger, m *metrics.Collector) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultSSHTimeout,
			KeepAlive:     cfg.KeepAlive,
		}, logger, m)
	}

	return &transport.TCPDialer{
		Timeout:   timeout,
		LocalPort: cfg.LocalPort,
		NoDNS:     cfg.NoDNS,
		Logger:    logger,
		Metrics:   m,
	}
}

// buildCapability selects the per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Execute != "" || cfg.Command != "" {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
		}
	}
	return &capability.Relay{}
}

// buildRetry returns nil for a single attempt.
func buildRetry(cfg *config.Config) *retry.Backoff {
	if cfg.Retries <= 0 {
		return nil
	}
	return retry.Retries(cfg.Retries, config.DefaultRetryDelay, config.DefaultMaxRetryDelay)
}
