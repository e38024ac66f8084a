package reliability

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the process-wide outbound call limiter.
type RateLimiterConfig struct {
	Burst             int
	RequestsPerSecond float64
}

// Enabled reports whether the config asks for any throttling.
func (c RateLimiterConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// RateLimiter throttles outbound model calls with a token bucket.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns nil when the config disables throttling.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if !config.Enabled() {
		return nil
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
	}
}

// Wait blocks until a call may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
