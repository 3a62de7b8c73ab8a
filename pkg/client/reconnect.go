package client

import (
	"math"
	"time"

	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

// ReconnectPolicy bounds automatic reconnection after connection failures
type ReconnectPolicy struct {
	// MaxAttempts is how many reconnections follow consecutive connection
	// failures. Zero disables automatic reconnection.
	MaxAttempts int
	// BaseDelay is the delay before the first reconnection
	BaseDelay time.Duration
	// MaxDelay caps the delay between reconnections
	MaxDelay time.Duration
	// Multiplier grows the delay after each reconnection
	Multiplier float64
	// ResetAfter restarts the attempt count when a session that stayed ready at
	// least this long fails. Zero never resets.
	ResetAfter time.Duration
}

// DefaultReconnectPolicy returns 3 reconnections after 1s, 2s and 4s
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait before reconnection n, counted from zero
func (p ReconnectPolicy) Delay(n int) time.Duration {
	factor := p.Multiplier
	if factor < 1 {
		factor = 2
	}

	backoff := float64(p.BaseDelay) * math.Pow(factor, float64(n))
	if p.MaxDelay > 0 && backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	return time.Duration(backoff)
}

// next decides whether another negotiation follows a connection failure, given the
// number of negotiations started so far
func (p ReconnectPolicy) next(attempts int) (time.Duration, bool) {
	n := attempts - 1
	if n < 0 {
		n = 0
	}
	if n >= p.MaxAttempts {
		return 0, false
	}
	return p.Delay(n), true
}

// scheduleReconnectLocked arms the reconnection timer, replacing any timer already
// pending. c.mu must be held.
func (c *Client) scheduleReconnectLocked(delay time.Duration) {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectSeq++
	seq := c.reconnectSeq
	c.reconnectTimer = c.clock.AfterFunc(delay, func() { c.reconnect(seq) })

	c.metrics.RecordReconnect(delay)
	c.logger.Info("Reconnection scheduled",
		logging.String("operation", "reconnect"),
		logging.Int("attempt", c.attempts),
		logging.Duration("delay", delay),
	)
}

// cancelReconnectLocked stops a pending reconnection. c.mu must be held.
func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectSeq++
}

func (c *Client) reconnect(seq uint64) {
	guard := func() bool {
		return seq == c.reconnectSeq && !c.closing
	}

	c.mu.Lock()
	if !guard() {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.mu.Unlock()

	if err := c.ensure(guard); err != nil {
		c.logger.WithError(err).Debug("Reconnection attempt failed", logging.String("operation", "reconnect"))
	}
}
