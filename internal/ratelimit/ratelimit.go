package ratelimit

import (
	"context"
	"time"

	"liveauction/internal/apperr"

	"go.uber.org/zap"
)

// Limiter admits at most a fixed number of events per key and period.
type Limiter interface {
	// Allow takes one event for key. When refused it reports how long
	// until the next event would be admitted.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Check returns a rate_limited error when l refuses key. A nil limiter
// admits everything, and a limiter failure is logged and lets the event
// through so bidding keeps working while Redis is unavailable.
func Check(ctx context.Context, l Limiter, key string) error {
	if l == nil {
		return nil
	}
	ok, retryAfter, err := l.Allow(ctx, key)
	if err != nil {
		zap.L().Warn("ratelimit.allow", zap.String("key", key), zap.Error(err))
		return nil
	}
	if ok {
		return nil
	}
	return apperr.RateLimited("too many bids, slow down").
		With("retryAfterMs", retryAfter.Milliseconds())
}

// BidKey scopes a bid limiter to one actor across every transport.
func BidKey(actorID string) string { return "bid:" + actorID }
