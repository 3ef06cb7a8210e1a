package socket

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{Connected, "connected"},
		{ResolutionFailed, "resolution failed"},
		{SocketCreateFailed, "socket setup failed"},
		{WaitFailed, "wait failed"},
		{TimedOut, "timed out"},
		{Cancelled, "cancelled"},
		{ConnectFailed, "connect failed"},
		{Outcome(42), "unknown outcome 42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.o.String())
	}
}

func TestOutcome_Retryable(t *testing.T) {
	assert.True(t, TimedOut.Retryable())
	assert.True(t, ConnectFailed.Retryable())
	for _, o := range []Outcome{Connected, ResolutionFailed, SocketCreateFailed, WaitFailed, Cancelled} {
		assert.False(t, o.Retryable(), o.String())
	}
}

func TestConnectError_Format(t *testing.T) {
	err := &ConnectError{Outcome: TimedOut, Host: "10.0.0.1", Port: 22}
	assert.Equal(t, "connect 10.0.0.1:22: timed out", err.Error())

	err = &ConnectError{Outcome: ConnectFailed, Host: "::1", Port: 80, Err: io.EOF}
	assert.Equal(t, "connect [::1]:80: connect failed: EOF", err.Error())
}

func TestConnectError_Is(t *testing.T) {
	inner := errors.New("refused")
	err := fmt.Errorf("dial: %w", &ConnectError{Outcome: ConnectFailed, Err: inner})

	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestConnectError_NetError(t *testing.T) {
	var ne net.Error = &ConnectError{Outcome: TimedOut}
	assert.True(t, ne.Timeout())

	ne = &ConnectError{Outcome: Cancelled}
	assert.False(t, ne.Timeout())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, Connected, OutcomeOf(nil))
	assert.Equal(t, Cancelled, OutcomeOf(fmt.Errorf("x: %w", &ConnectError{Outcome: Cancelled})))
	assert.Equal(t, ConnectFailed, OutcomeOf(io.EOF))
}
