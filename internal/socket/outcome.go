// Package socket establishes outbound TCP connections on raw
// descriptors.
//
// A connect attempt resolves the host, creates a stream socket, issues
// a non-blocking connect and then waits for write-readiness in bounded
// slices of [WaitSlice].  Between slices it consults a [CancelFlag] and
// charges the elapsed slice against the caller's millisecond budget.
// Exactly one [Outcome] is produced per attempt.  On every failure the
// descriptor has already been closed; on success it is handed back in
// blocking mode with write-error-safe mode armed (see [Guard]).
package socket

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Outcome discriminates the result of a single connect attempt.
type Outcome int

const (
	// Connected means the handle is ready for use.
	Connected Outcome = iota
	// ResolutionFailed means the host did not resolve to an address.
	ResolutionFailed
	// SocketCreateFailed covers local setup failures: socket creation,
	// source-port binding and blocking-mode toggles.
	SocketCreateFailed
	// WaitFailed means the readiness wait failed for a reason other
	// than interruption or timeout.
	WaitFailed
	// TimedOut means the budget ran out before the handle became ready.
	TimedOut
	// Cancelled means the cancel flag was observed before completion.
	Cancelled
	// ConnectFailed means the connect itself failed, either immediately
	// or as the pending error reported after readiness.
	ConnectFailed
)

func (o Outcome) String() string {
	switch o {
	case Connected:
		return "connected"
	case ResolutionFailed:
		return "resolution failed"
	case SocketCreateFailed:
		return "socket setup failed"
	case WaitFailed:
		return "wait failed"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	case ConnectFailed:
		return "connect failed"
	default:
		return "unknown outcome " + strconv.Itoa(int(o))
	}
}

// Retryable reports whether re-invoking the whole connect may succeed.
// Cancellation and local failures are final.
func (o Outcome) Retryable() bool {
	return o == TimedOut || o == ConnectFailed
}

// ── Sentinels ────────────────────────────────────────────────────────

var (
	ErrResolutionFailed   = errors.New("resolution failed")
	ErrSocketCreateFailed = errors.New("socket setup failed")
	ErrWaitFailed         = errors.New("wait failed")
	ErrTimedOut           = errors.New("connect timed out")
	ErrCancelled          = errors.New("connect cancelled")
	ErrConnectFailed      = errors.New("connect failed")
)

func (o Outcome) sentinel() error {
	switch o {
	case ResolutionFailed:
		return ErrResolutionFailed
	case SocketCreateFailed:
		return ErrSocketCreateFailed
	case WaitFailed:
		return ErrWaitFailed
	case TimedOut:
		return ErrTimedOut
	case Cancelled:
		return ErrCancelled
	case ConnectFailed:
		return ErrConnectFailed
	}
	return nil
}

// ── ConnectError ─────────────────────────────────────────────────────

// ConnectError is the error returned for every unsuccessful attempt.
// It matches the sentinel for its Outcome with errors.Is and unwraps to
// the underlying OS or resolver error, if any.
type ConnectError struct {
	Outcome Outcome
	Host    string
	Port    int
	Err     error
}

func (e *ConnectError) Error() string {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	if e.Err == nil {
		return fmt.Sprintf("connect %s: %s", addr, e.Outcome)
	}
	return fmt.Sprintf("connect %s: %s: %v", addr, e.Outcome, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Is matches the sentinel error for e.Outcome.
func (e *ConnectError) Is(target error) bool {
	s := e.Outcome.sentinel()
	return s != nil && target == s
}

// Timeout reports whether the attempt ran out of budget, so that a
// ConnectError satisfies the Timeout half of net.Error.
func (e *ConnectError) Timeout() bool { return e.Outcome == TimedOut }

// Temporary mirrors Timeout; see net.Error.
func (e *ConnectError) Temporary() bool { return e.Outcome.Retryable() }

// OutcomeOf maps err back to its Outcome.  A nil error is Connected;
// errors that did not come from this package are ConnectFailed.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Connected
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Outcome
	}
	return ConnectFailed
}
