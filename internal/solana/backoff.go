package solana

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Base, capped at
// Max, with up to JitterFrac of the delay added as random jitter.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	JitterFrac float64
}

// DefaultBackoff is the reconnect policy for stream connections.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       1 * time.Second,
		Max:        30 * time.Second,
		JitterFrac: 0.2,
	}
}

// DelayAt returns the deterministic delay for a retry attempt (0-based) with
// an explicit jitter fraction in [0,1). Pure, for tests.
func (b Backoff) DelayAt(attempt int, jitter float64) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	if d > b.Max {
		d = b.Max
	}
	return d + time.Duration(jitter*b.JitterFrac*float64(d))
}

// Delay returns the delay for attempt with random jitter applied.
func (b Backoff) Delay(attempt int) time.Duration {
	return b.DelayAt(attempt, rand.Float64())
}
