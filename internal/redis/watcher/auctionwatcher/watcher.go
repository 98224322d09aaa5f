package auctionwatcher

import (
	"context"

	"liveauction/internal/redis/auction_state"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const expiredPattern = "__keyevent@*__:expired"

// Refresher recomputes an auction's status from the clock.
type Refresher interface {
	Refresh(ctx context.Context, auctionID string) error
}

// Run listens to key‑expiry events of the go-live and end timer keys and
// refreshes the matching auction, which persists the transition and
// announces the end of bidding. Run must be started once at service boot.
func Run(ctx context.Context, rdb *redis.Client, svc Refresher) {
	ps := rdb.PSubscribe(ctx, expiredPattern)
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			Handle(ctx, svc, m.Payload)
		}
	}
}

// Handle refreshes the auction owning an expired timer key. Other keys are
// ignored. It reports whether key was a timer key.
func Handle(ctx context.Context, svc Refresher, key string) bool {
	id, ok := auction_state.TimerAuctionID(key)
	if !ok {
		return false
	}
	if err := svc.Refresh(ctx, id); err != nil {
		zap.L().Warn("auctionwatcher.refresh", zap.String("auction_id", id), zap.Error(err))
	}
	return true
}
