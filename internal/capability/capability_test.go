package capability

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncdial/internal/metrics"
	"ncdial/internal/session"
	"ncdial/util"
)

// echoConn dials a local TCP echo server.
func echoConn(t *testing.T) net.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) //nolint:errcheck
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestRelay_BidirectionalCopy verifies Relay shuttles data via the
// session's I/O endpoints and reports byte totals.
func TestRelay_BidirectionalCopy(t *testing.T) {
	conn := echoConn(t)
	input := bytes.NewBufferString("hello relay\n")
	output := &bytes.Buffer{}
	m := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess := session.New(conn, input, output, util.NewLogger(0)).WithMetrics(m)
	require.NoError(t, (&Relay{}).Handle(ctx, sess))

	assert.Equal(t, "hello relay\n", output.String())
	assert.EqualValues(t, 12, m.TotalBytesOut())
	assert.EqualValues(t, 12, m.TotalBytesIn())
}

// TestRelay_NoMetrics verifies a session without a collector works.
func TestRelay_NoMetrics(t *testing.T) {
	conn := echoConn(t)
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess := session.New(conn, bytes.NewBufferString("x"), output, util.NewLogger(0))
	require.NoError(t, (&Relay{}).Handle(ctx, sess))
	assert.Equal(t, "x", output.String())
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (client, server *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	c, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	s := <-accepted
	t.Cleanup(func() {
		c.Close()
		s.Close()
	})
	return c.(*net.TCPConn), s.(*net.TCPConn)
}

// TestExec_Command verifies -c runs through the shell with its stdio
// on the connection.
func TestExec_Command(t *testing.T) {
	client, server := tcpPair(t)
	require.NoError(t, client.CloseWrite())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		sess := session.New(server, nil, nil, util.NewLogger(0))
		done <- (&Exec{Command: "echo connected"}).Handle(ctx, sess)
		server.Close()
	}()

	got, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t, "connected\n", string(got))
	require.NoError(t, <-done)
}

// TestExec_NoCommand verifies the empty configuration is rejected.
func TestExec_NoCommand(t *testing.T) {
	sess := session.New(nil, nil, nil, util.NewLogger(0))
	err := (&Exec{Program: "   "}).Handle(context.Background(), sess)
	assert.ErrorContains(t, err, "no command specified")
}

// TestExec_Failure verifies a failing child is reported.
func TestExec_Failure(t *testing.T) {
	client, server := tcpPair(t)
	require.NoError(t, client.CloseWrite())

	sess := session.New(server, nil, nil, util.NewLogger(0))
	err := (&Exec{Command: "exit 3"}).Handle(context.Background(), sess)
	assert.ErrorContains(t, err, "exited with status 3")
}

// TestExec_ProgramArgsAndEnv verifies the child sees the connection
// addresses in its environment.
func TestExec_ProgramArgsAndEnv(t *testing.T) {
	client, server := tcpPair(t)
	require.NoError(t, client.CloseWrite())

	done := make(chan error, 1)
	go func() {
		sess := session.New(server, nil, nil, util.NewLogger(0))
		done <- (&Exec{Program: "/usr/bin/env"}).Handle(context.Background(), sess)
		server.Close()
	}()

	got, err := io.ReadAll(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Contains(t, string(got), "NCDIAL_REMOTE_ADDR="+client.LocalAddr().String())
	assert.Contains(t, string(got), "NCDIAL_LOCAL_ADDR="+client.RemoteAddr().String())
}

func TestExec_ProgramWithArguments(t *testing.T) {
	client, server := tcpPair(t)
	require.NoError(t, client.CloseWrite())

	done := make(chan error, 1)
	go func() {
		sess := session.New(server, nil, nil, util.NewLogger(0))
		done <- (&Exec{Program: "/bin/echo hi  there"}).Handle(context.Background(), sess)
		server.Close()
	}()

	got, err := io.ReadAll(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, "hi there\n", string(got))
}
