//go:build unix

package socket

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(host string) ([]net.IP, error)

// Endpoint is a resolved connect target.
type Endpoint struct {
	Family int // unix.AF_INET or unix.AF_INET6
	IP     net.IP
	Port   int
	Addr   unix.Sockaddr
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(e.Port))
}

// Resolve turns host into an Endpoint.  Literal addresses never touch
// the resolver; with noDNS a non-literal host is rejected.  IPv4
// addresses are preferred over IPv6.
func Resolve(host string, port int, noDNS bool) (Endpoint, error) {
	return resolve(host, port, noDNS, net.LookupIP)
}

func resolve(host string, port int, noDNS bool, lookup LookupFunc) (Endpoint, error) {
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else if noDNS {
		return Endpoint{}, fmt.Errorf("cannot parse %q as an IP address (DNS disabled)", host)
	} else {
		var err error
		if ips, err = lookup(host); err != nil {
			return Endpoint{}, err
		}
	}

	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return Endpoint{
				Family: unix.AF_INET,
				IP:     v4,
				Port:   port,
				Addr:   &unix.SockaddrInet4{Port: port, Addr: [4]byte(v4)},
			}, nil
		}
	}
	for _, ip := range ips {
		if v6 := ip.To16(); v6 != nil {
			return Endpoint{
				Family: unix.AF_INET6,
				IP:     v6,
				Port:   port,
				Addr:   &unix.SockaddrInet6{Port: port, Addr: [16]byte(v6)},
			}, nil
		}
	}
	return Endpoint{}, fmt.Errorf("no usable address for %q", host)
}

// Socket creates a close-on-exec stream socket matching e's family.
func (e Endpoint) Socket() (Handle, error) {
	fd, err := newStreamSocket(e.Family)
	if err != nil {
		return InvalidHandle, err
	}
	return Handle(fd), nil
}
