package capability

import (
	"context"

	"ncdial/internal/session"
	"ncdial/util"
)

// Relay copies data bidirectionally between the connection and the
// session's stdin/stdout, the default interactive / pipe mode.
type Relay struct{}

// Handle shuttles bytes between the network connection and the local
// I/O endpoints until one side closes or the context is cancelled.
// Byte totals go to the session's metrics collector.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	var counter util.ByteCounter
	if sess.Metrics != nil {
		counter = sess.Metrics
	}
	return util.BidirectionalCopy(ctx, sess.Conn, sess.Stdin, sess.Stdout, counter)
}
