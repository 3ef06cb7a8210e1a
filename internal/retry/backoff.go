// Package retry re-runs whole connect attempts with exponential
// backoff.  The connector itself never retries; this package is the
// caller-side policy layered on top of it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 60 * time.Second
	defaultMultiplier   = 2.0
)

// Backoff implements exponential backoff with optional jitter.  The
// zero value retries forever, starting at one second and doubling up
// to a minute.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxAttempts is the total number of tries including the first.
	// Zero means unlimited (until the context is done).
	MaxAttempts int

	// Jitter adds ±25% randomisation to every wait.
	Jitter bool

	// Retryable classifies failures.  When set, an error it rejects
	// is returned at once.
	Retryable func(error) bool

	// OnRetry is called before each wait with the failed attempt
	// number, its error and the upcoming delay.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Retries returns a jittered Backoff allowing n attempts after the
// first, waiting initial before the first retry and doubling up to
// ceiling.
func Retries(n int, initial, ceiling time.Duration) *Backoff {
	return &Backoff{
		InitialDelay: initial,
		MaxDelay:     ceiling,
		Multiplier:   defaultMultiplier,
		MaxAttempts:  n + 1,
		Jitter:       true,
	}
}

// Delay returns the un-jittered wait after the given failed attempt
// (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	initial, ceiling, mult := b.InitialDelay, b.MaxDelay, b.Multiplier
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	if ceiling <= 0 {
		ceiling = defaultMaxDelay
	}
	if mult <= 0 {
		mult = defaultMultiplier
	}
	d := float64(initial) * math.Pow(mult, float64(attempt-1))
	if d > float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, Retryable rejects its error, the
// attempt budget is spent or ctx is done.  fn receives the 1-based
// attempt number.  A single-attempt budget returns fn's error
// unchanged; an exhausted larger budget wraps the last error.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		switch {
		case err == nil:
			return nil
		case b.Retryable != nil && !b.Retryable(err):
			return err
		case b.MaxAttempts == 1:
			return err
		case b.MaxAttempts > 0 && attempt >= b.MaxAttempts:
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = addJitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), err))
		case <-t.C:
		}
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
