package net

import (
	"sync/atomic"

	"go.uber.org/ratelimit"
	"golang.org/x/time/rate"
)

// RecvLimiter implements a token bucket over the inbound message stream.
// The manager consults it once per decoded message and drops what the bucket
// refuses, protecting the tick loop from a peer that floods faster than the
// game can simulate.
//
// Atomic pointer swapping lets the limits be reloaded at runtime without
// racing the drain path.
type RecvLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// NewRecvLimiter creates a token bucket allowing `limit` messages per second
// with the given burst.
func NewRecvLimiter(limit int, burst int) *RecvLimiter {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	if limiter == nil {
		return nil
	}
	l := &RecvLimiter{}
	l.limiter.Store(limiter)
	return l
}

// Allow reports whether one more inbound message may be processed now. Never
// blocks; the drain path runs on the tick loop and cannot afford to wait.
func (l *RecvLimiter) Allow() bool {
	return l.limiter.Load().Allow()
}

// Reload swaps in new limits at runtime.
func (l *RecvLimiter) Reload(limit int, burst int) {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	if limiter == nil {
		return
	}
	l.limiter.Store(limiter)
}

// SendPacer implements a leaky bucket over outbound sends. Unlike the recv
// limiter it smooths rather than drops: Take blocks just long enough to keep
// the outbound rate at the configured ceiling. Useful for bulk state
// broadcasts that would otherwise burst a whole snapshot into one tick.
type SendPacer struct {
	limiter atomic.Pointer[ratelimit.Limiter]
}

// NewSendPacer creates a leaky bucket pacing sends to `limit` per second.
func NewSendPacer(limit int) *SendPacer {
	limiter := ratelimit.New(limit)
	if limiter == nil {
		return nil
	}
	p := &SendPacer{}
	p.limiter.Store(&limiter)
	return p
}

// Take blocks until the next send slot.
func (p *SendPacer) Take() {
	_ = (*p.limiter.Load()).Take()
}

// Reload swaps in a new rate at runtime.
func (p *SendPacer) Reload(limit int) {
	limiter := ratelimit.New(limit)
	if limiter == nil {
		return
	}
	p.limiter.Store(&limiter)
}
