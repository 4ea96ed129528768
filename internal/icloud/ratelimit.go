package icloud

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Operation is a service call with its token cost.
type Operation int

const (
	OpList       Operation = iota // 2 tokens
	OpDeactivate                  // 1 token
	OpDelete                      // 1 token
)

// Cost returns the token cost for an operation.
func (o Operation) Cost() int {
	if o == OpList {
		return 2
	}
	return 1
}

func (o Operation) String() string {
	switch o {
	case OpList:
		return "list"
	case OpDeactivate:
		return "deactivate"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

const (
	// DefaultCapacity is the burst allowed after idling.
	DefaultCapacity = 5

	// DefaultQPS is the sustained request rate used when none is configured.
	DefaultQPS = 1.0

	// MinQPS is the lowest rate a limiter will run at.
	MinQPS = 0.1

	// slowdown scales the rate after the service pushes back, until the
	// next successful call.
	slowdown = 0.5
)

// RateLimiter paces service calls with a token bucket. When the service
// pushes back, Throttle stops all calls for a window, after which the bucket
// refills from empty at half rate until RecoverRate is called.
type RateLimiter struct {
	mu             sync.Mutex
	clock          Clock
	limiter        *rate.Limiter
	qps            rate.Limit
	throttledUntil time.Time
	throttled      bool // burst is zeroed until the window closes
}

// NewRateLimiter creates a limiter allowing qps calls per second.
func NewRateLimiter(qps float64) *RateLimiter {
	return newRateLimiter(realClock{}, qps)
}

// newRateLimiter panics if clk is nil.
func newRateLimiter(clk Clock, qps float64) *RateLimiter {
	if clk == nil {
		panic("icloud: RateLimiter requires a non-nil Clock")
	}
	if qps < MinQPS {
		qps = MinQPS
	}
	return &RateLimiter{
		clock:   clk,
		limiter: rate.NewLimiter(rate.Limit(qps), DefaultCapacity),
		qps:     rate.Limit(qps),
	}
}

// reserve takes tokens for op and returns how long the caller must wait.
// A nil reservation means the throttle window is still open and the caller
// should try again once it closes.
func (r *RateLimiter) reserve(op Operation) (time.Duration, *rate.Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Before(r.throttledUntil) {
		return r.throttledUntil.Sub(now), nil
	}
	if r.throttled {
		r.limiter.SetBurstAt(r.throttledUntil, DefaultCapacity)
		r.throttled = false
	}

	res := r.limiter.ReserveN(now, op.Cost())
	return res.DelayFrom(now), res
}

// Acquire blocks until op may be sent or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context, op Operation) error {
	for {
		wait, res := r.reserve(op)
		if wait <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			if res != nil {
				res.CancelAt(r.clock.Now())
			}
			return ctx.Err()
		case <-r.clock.After(wait):
			if res != nil {
				return nil
			}
		}
	}
}

// Throttle blocks every call for duration and slows the rate afterwards.
// An existing longer window is kept.
func (r *RateLimiter) Throttle(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if end := now.Add(duration); end.After(r.throttledUntil) {
		r.throttledUntil = end
	}
	r.limiter.SetLimitAt(now, r.qps*slowdown)
	r.limiter.SetBurstAt(now, 0)
	r.throttled = true
}

// RecoverRate restores the configured rate.
func (r *RateLimiter) RecoverRate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimitAt(r.clock.Now(), r.qps)
}
