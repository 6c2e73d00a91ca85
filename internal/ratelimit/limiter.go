// Package ratelimit provides per-service token-bucket limiters bounding
// outbound call pressure against external APIs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

// Limiter is a token bucket refilled continuously at rpm/60 tokens per
// second with capacity rpm. Acquire never fails; it only delays. Callers
// needing bounded latency must pass a context with a deadline.
type Limiter struct {
	mu       sync.Mutex
	rpm      float64
	tokens   float64
	lastFill time.Time

	// now is replaceable for tests
	now func() time.Time
}

// NewLimiter creates a limiter with the given requests-per-minute budget.
// The bucket starts full.
func NewLimiter(rpm int) *Limiter {
	if rpm <= 0 {
		rpm = 1
	}
	l := &Limiter{
		rpm:    float64(rpm),
		tokens: float64(rpm),
		now:    time.Now,
	}
	l.lastFill = l.now()
	return l
}

// Acquire blocks until a call slot is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait := l.tryTake()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryTake consumes one token if available, otherwise returns how long to
// wait before the next token accrues.
func (l *Limiter) tryTake() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}

	deficit := 1 - l.tokens
	perToken := time.Duration(float64(time.Minute) / l.rpm)
	return time.Duration(deficit * float64(perToken))
}

// refill accrues tokens for elapsed time, capped at capacity.
// Caller must hold mu.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastFill)
	if elapsed <= 0 {
		return
	}
	l.lastFill = now

	l.tokens += elapsed.Seconds() * l.rpm / 60
	if l.tokens > l.rpm {
		l.tokens = l.rpm
	}
}

// Available returns the current token count, for metrics and tests.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// Registry maps service ids to their limiters.
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry builds a registry from a service id -> rpm map.
func NewRegistry(rpms map[string]int) *Registry {
	r := &Registry{limiters: make(map[string]*Limiter, len(rpms))}
	for id, rpm := range rpms {
		r.limiters[id] = NewLimiter(rpm)
	}
	return r
}

// Acquire blocks on the limiter for serviceID. Unknown service ids are a
// programming error and fail fast rather than silently skipping the limit.
func (r *Registry) Acquire(ctx context.Context, serviceID string) error {
	l, ok := r.limiters[serviceID]
	if !ok {
		return fmt.Errorf("ratelimit: unknown service %q", serviceID)
	}
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	observability.RecordRateLimitAcquire(serviceID)
	return nil
}

// Limiter returns the limiter for serviceID, or nil if not registered.
func (r *Registry) Limiter(serviceID string) *Limiter {
	return r.limiters[serviceID]
}

// Service ids used across the pipeline.
const (
	ServiceMarketData = "marketdata"
	ServiceSecurity   = "security"
	ServiceRPC        = "rpc"
	ServiceLLM        = "llm"
	ServiceNarrative  = "narrative"
)
