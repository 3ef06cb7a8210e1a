package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// ByteCounter receives the byte totals of a copy.  *metrics.Collector
// satisfies it; a nil counter is allowed.
type ByteCounter interface {
	BytesReceived(n int64)
	BytesSent(n int64)
}

// BidirectionalCopy shuffles data between a network connection and an
// arbitrary reader/writer pair (typically stdin/stdout) until one side
// reaches EOF or the context is cancelled.  Byte totals are reported to
// counter when it is non-nil.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer, counter ByteCounter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// network → writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := pooledCopy(w, conn)
		if counter != nil {
			counter.BytesReceived(n)
		}
		errCh <- err
		cancel()
	}()

	// reader → network
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := pooledCopy(conn, r)
		if counter != nil {
			counter.BytesSent(n)
		}
		// Half-close the write side so the remote knows we're done
		// sending, but keep the read side open to drain any remaining
		// data from the server (the writer goroutine handles that).
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		// A normal EOF from the reader must not tear down the
		// connection before the remote finishes sending.
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isHarmless(err) {
			return err
		}
	}
	return nil
}

// copyBufs recycles relay buffers between connections.
var copyBufs = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

func getBuf() *[]byte { return copyBufs.Get().(*[]byte) }

// putBuf drops buffers that are nil or were resliced.
func putBuf(buf *[]byte) {
	if buf == nil || len(*buf) != DefaultBufSize {
		return
	}
	copyBufs.Put(buf)
}

// pooledCopy is io.CopyBuffer with a pooled buffer.
func pooledCopy(dst io.Writer, src io.Reader) (int64, error) {
	buf := getBuf()
	defer putBuf(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
