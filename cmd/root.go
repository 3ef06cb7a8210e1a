// Package cmd wires up the CLI flags and dispatches to the ncdial modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ncdial/config"
	"ncdial/internal/core"
	"ncdial/internal/metrics"
	"ncdial/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ncdial/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// streams are the process I/O handles; tests substitute buffers.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// options are the flags that steer the CLI itself rather than the run.
type options struct {
	showVersion bool
	showHelp    bool
	dryRun      bool
}

// Execute parses args and runs the appropriate ncdial mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func execute(ctx context.Context, args []string, s streams) error {
	cfg, opts, fs, err := parseArgs(args, s.err)
	if err != nil {
		return err
	}

	if opts.showHelp || len(args) == 0 {
		printUsage(fs, s.err)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(s.out, "ncdial %s\n", version)
		return nil
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(s.err)
	m := metrics.New()

	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}
	if opts.dryRun {
		logger.Info("configuration ok")
		return nil
	}

	if cm, ok := mode.(*core.ConnectMode); ok {
		cm.Stdin = s.in
		cm.Stdout = s.out
	}

	err = mode.Run(ctx)
	logger.Debug("metrics: %s", m.JSON())
	return err
}

// parseArgs overlays NCDIAL_* environment variables and then the flags
// in args onto a fresh Config.  A flag only wins over the environment
// when it is given explicitly.
func parseArgs(args []string, errOut io.Writer) (*config.Config, *options, *flag.FlagSet, error) {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose

	opts := &options{}
	fs := flag.NewFlagSet("ncdial", flag.ContinueOnError)
	fs.SetOutput(errOut)

	// ── connection ───────────────────────────────────────────────
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Source port to bind before connecting")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.BoolVarP(&cfg.ZeroIO, "zero-io", "z", cfg.ZeroIO, "Zero-I/O mode (port scanning)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Extra connect attempts after a timeout or refusal")

	var timeoutSec, timeoutMs int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connect timeout in seconds (0 = wait forever)")
	fs.IntVar(&timeoutMs, "timeout-ms", 0, "Connect timeout in milliseconds (overrides -w)")

	// ── execution ────────────────────────────────────────────────
	fs.StringVarP(&cfg.Execute, "exec", "e", "", "Execute program after connect")
	fs.StringVarP(&cfg.Command, "command", "c", "", "Execute shell command after connect")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.DurationVar(&cfg.KeepAlive, "keep-alive", cfg.KeepAlive, "SSH keepalive interval (0 = off)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, errOut) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}
	switch {
	case fs.Changed("timeout-ms"):
		cfg.Timeout = config.Scale(timeoutMs, time.Millisecond)
	case fs.Changed("timeout"):
		cfg.Timeout = config.Scale(timeoutSec, time.Second)
	}
	return cfg, opts, fs, nil
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional reads host port [port …].  The environment may
// supply the host, in which case only ports are required.
func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) >= 2 || cfg.Host == "" {
		if len(remaining) < 1 {
			return fmt.Errorf("hostname required (use --help for usage)")
		}
		cfg.Host = remaining[0]
		remaining = remaining[1:]
	}

	if len(remaining) < 1 {
		return fmt.Errorf("port required")
	}

	for _, arg := range remaining {
		pr, err := config.ParsePortSpec(arg)
		if err != nil {
			return fmt.Errorf("port %q: %w", arg, err)
		}
		cfg.Ports = append(cfg.Ports, pr)
	}
	cfg.Port = cfg.Ports[0].Start
	return nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `ncdial - cancellable TCP connector v%s

Usage:
  ncdial [options] <host> <port>              Connect and relay stdin/stdout
  ncdial -z [options] <host> <ports...>       Scan
  ncdial -T user@gateway <host> <port>        Connect through an SSH gateway

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  ncdial -w 5 example.com 80                  Connect, give up after 5s
  ncdial --timeout-ms 250 --retries 3 db 5432 Short budget, three retries
  ncdial -vz host.example.com 20-25 80 443    Port scan
  ncdial -T admin@bastion db-internal 5432    SSH tunnel
  echo "hello" | ncdial host.example.com 9000 Pipe data
`)
}
