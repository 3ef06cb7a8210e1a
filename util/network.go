package util

import (
	"fmt"
	"net"
	"strconv"
)

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitAddr is the inverse of FormatAddr.  The port may be numeric or
// a service name known to the system ("http", "ssh").
func SplitAddr(network, addr string) (host string, port int, err error) {
	host, service, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err = net.LookupPort(network, service)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// FindFreePort returns a TCP port on 127.0.0.1 that was free at the
// time of the call.  Nothing listens on it afterwards, which makes it a
// convenient refused-connection target.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
