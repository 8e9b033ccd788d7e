package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a token bucket in front of the email gateway.
// It enforces a steady-state send rate across all batch processors so a
// burst of concurrent batches cannot exceed the relay's accepted rate.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter with ratePerSec tokens per second.
func New(ratePerSec int) *SendLimiter {
	return &SendLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Wait blocks until the limiter grants a token.
// Called by each worker immediately before a gateway send.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
