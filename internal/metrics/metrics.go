// Package metrics provides lightweight counters for a single ncdial
// run: connect attempts by outcome, open connections and bytes moved.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for an ncdial run.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	attempts     map[string]int64 // connect attempts keyed by outcome
	connectTime  time.Duration    // summed across attempts
	slowest      time.Duration
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime: time.Now(),
		attempts:  make(map[string]int64),
	}
}

// ── Connect attempts ─────────────────────────────────────────────────

// RecordConnect records one connect attempt that ended with outcome
// after elapsed.
func (c *Collector) RecordConnect(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempts == nil {
		c.attempts = make(map[string]int64)
	}
	c.attempts[outcome]++
	c.connectTime += elapsed
	if elapsed > c.slowest {
		c.slowest = elapsed
	}
}

// Attempts returns how many connect attempts ended with outcome.
func (c *Collector) Attempts(outcome string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts[outcome]
}

// TotalAttempts returns the number of connect attempts of any outcome.
func (c *Collector) TotalAttempts() int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, v := range c.attempts {
		n += v
	}
	return n
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// OutcomeCount is one row of the per-outcome breakdown.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string         `json:"uptime"`
	ConnectAttempts   []OutcomeCount `json:"connect_attempts,omitempty"`
	ConnectTimeAvg    string         `json:"connect_time_avg,omitempty"`
	ConnectTimeMax    string         `json:"connect_time_max,omitempty"`
	ConnectionsActive int64          `json:"connections_active"`
	ConnectionsTotal  int64          `json:"connections_total"`
	BytesIn           int64          `json:"bytes_in"`
	BytesOut          int64          `json:"bytes_out"`
	ErrorsTotal       int64          `json:"errors_total"`
	LastError         string         `json:"last_error,omitempty"`
	LastErrorMessage  string         `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.  Outcomes are sorted
// by name so the output is stable.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}

	var total int64
	for outcome, n := range c.attempts {
		s.ConnectAttempts = append(s.ConnectAttempts, OutcomeCount{Outcome: outcome, Count: n})
		total += n
	}
	sort.Slice(s.ConnectAttempts, func(i, j int) bool {
		return s.ConnectAttempts[i].Outcome < s.ConnectAttempts[j].Outcome
	})
	if total > 0 {
		s.ConnectTimeAvg = (c.connectTime / time.Duration(total)).Round(time.Millisecond).String()
		s.ConnectTimeMax = c.slowest.Round(time.Millisecond).String()
	}

	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
