// Package transport provides abstractions for network connection
// establishment.  Transports handle how a connection is reached
// (directly through the socket connector, or through an SSH gateway)
// independent of what happens over it, which is the capability
// layer's job.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
