package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncdial/config"
	"ncdial/internal/capability"
	ncerr "ncdial/internal/errors"
	"ncdial/internal/metrics"
	"ncdial/internal/transport"
	"ncdial/util"
)

func TestBuild_Connect(t *testing.T) {
	cfg := &config.Config{Host: "example.com", Port: 80, Timeout: 2 * time.Second, LocalPort: 4000}
	m := metrics.New()

	mode, err := Build(cfg, util.NewLogger(0), m)
	require.NoError(t, err)

	cm, ok := mode.(*ConnectMode)
	require.True(t, ok, "expected *ConnectMode, got %T", mode)
	assert.Equal(t, "example.com:80", cm.Address)
	assert.Equal(t, "tcp", cm.Network)
	assert.Nil(t, cm.Retry)
	assert.IsType(t, &capability.Relay{}, cm.Capability)

	d, ok := cm.Dialer.(*transport.TCPDialer)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d.Timeout)
	assert.Equal(t, 4000, d.LocalPort)
	assert.Same(t, m, d.Metrics)
}

func TestBuild_Scan(t *testing.T) {
	cfg := &config.Config{
		Host:    "example.com",
		Ports:   []config.PortRange{{Start: 20, End: 22}, {Start: 80, End: 80}},
		ZeroIO:  true,
		Verbose: 2,
	}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)

	sm, ok := mode.(*ScanMode)
	require.True(t, ok, "expected *ScanMode, got %T", mode)
	assert.Equal(t, []int{20, 21, 22, 80}, sm.Ports)
	assert.Equal(t, config.DefaultScanTimeout, sm.Timeout)
	assert.Equal(t, bannerWait, sm.BannerWait)
}

func TestBuild_ScanQuietSkipsBanner(t *testing.T) {
	cfg := &config.Config{Host: "10.0.0.1", Port: 22, ZeroIO: true, Timeout: time.Second}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)
	sm := mode.(*ScanMode)
	assert.Equal(t, []int{22}, sm.Ports)
	assert.Equal(t, time.Second, sm.Timeout)
	assert.Zero(t, sm.BannerWait)
}

func TestBuild_Tunnel(t *testing.T) {
	cfg := &config.Config{
		Host:          "db",
		Port:          5432,
		TunnelEnabled: true,
		TunnelUser:    "admin",
		TunnelHost:    "bastion",
		TunnelPort:    22,
	}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)
	assert.IsType(t, &transport.SSHDialer{}, mode.(*ConnectMode).Dialer)
}

func TestBuild_Retries(t *testing.T) {
	cfg := &config.Config{Host: "127.0.0.1", Port: 80, Retries: 3}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)

	b := mode.(*ConnectMode).Retry
	require.NotNil(t, b)
	assert.Equal(t, 4, b.MaxAttempts)
	assert.Equal(t, config.DefaultRetryDelay, b.InitialDelay)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := &config.Config{Host: "example.com", Port: 80, NoDNS: true}

	_, err := Build(cfg, util.NewLogger(0), nil)
	var ce *ncerr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "no-dns", ce.Field)
}

func TestBuild_ExecCapability(t *testing.T) {
	cfg := &config.Config{Host: "127.0.0.1", Port: 80, Execute: "/bin/sh"}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	require.NoError(t, err)

	exec, ok := mode.(*ConnectMode).Capability.(*capability.Exec)
	require.True(t, ok)
	assert.Equal(t, "/bin/sh", exec.Program)
}
