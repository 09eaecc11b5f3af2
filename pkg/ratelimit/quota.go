package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// QuotaLimiter paces outgoing calls to an external service's documented
// request budget. Wait blocks until a token is available or ctx is done.
type QuotaLimiter struct {
	limiter *rate.Limiter
}

// PerMinute builds a limiter for an n-requests-per-minute quota.
func PerMinute(n int) *QuotaLimiter {
	return &QuotaLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1),
	}
}

// PerSecond builds a limiter for an n-requests-per-second quota.
func PerSecond(n int) *QuotaLimiter {
	return &QuotaLimiter{
		limiter: rate.NewLimiter(rate.Limit(n), n),
	}
}

func (l *QuotaLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
