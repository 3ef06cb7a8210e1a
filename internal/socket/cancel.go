package socket

import (
	"context"
	"sync/atomic"
)

// CancelFlag is a one-way cancellation signal shared between the caller
// and a connect attempt.  The attempt reads it once before every wait
// slice and never writes it, so a cancel is observed within one
// [WaitSlice].  A nil *CancelFlag is never cancelled.
type CancelFlag struct {
	set atomic.Bool
}

// NewCancelFlag returns a flag in the not-cancelled state.
func NewCancelFlag() *CancelFlag { return &CancelFlag{} }

// Cancel sets the flag.  It is safe to call from any goroutine and more
// than once.
func (f *CancelFlag) Cancel() { f.set.Store(true) }

// Cancelled reports whether Cancel has been called.
func (f *CancelFlag) Cancelled() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}

// Bind cancels f when ctx is done.  The returned stop function detaches
// f from ctx; it reports false if the flag was already set by ctx.
// A context that is already done sets f before Bind returns.
func (f *CancelFlag) Bind(ctx context.Context) (stop func() bool) {
	if ctx.Err() != nil {
		f.Cancel()
	}
	return context.AfterFunc(ctx, f.Cancel)
}
