package syncdb

import (
	"context"
	"time"

	"liveauction/internal/database/repository"
	"liveauction/internal/models"

	"go.uber.org/zap"
)

const pageSize = 200

// Refresher recomputes an auction's status from the clock.
type Refresher interface {
	Refresh(ctx context.Context, auctionID string) error
}

// Sweeper catches status transitions nobody asked about: auctions that went
// live or ended while no request, timer event or room touched them.
type Sweeper struct {
	store    repository.AuctionStore
	svc      Refresher
	interval time.Duration
	now      func() time.Time
}

func New(store repository.AuctionStore, svc Refresher, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, svc: svc, interval: interval, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled. A zero interval
// disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	tk := time.NewTicker(s.interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// SweepOnce refreshes every stored SCHEDULED or LIVE auction whose clock
// phase is ahead of its stored status and returns how many it refreshed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := s.now()
	var due []string
	for offset := 0; ; offset += pageSize {
		page, err := s.store.ListAuctions(ctx, repository.ListFilter{
			Statuses: []models.Status{models.StatusScheduled, models.StatusLive},
			Limit:    pageSize,
			Offset:   offset,
		})
		if err != nil {
			zap.L().Error("syncdb.list", zap.Error(err))
			return 0
		}
		for i := range page {
			a := &page[i]
			if models.DeriveStatus(a.Schedule(), now).Rank() > a.Status.Rank() {
				due = append(due, a.ID)
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	for _, id := range due {
		if err := s.svc.Refresh(ctx, id); err != nil {
			zap.L().Warn("syncdb.refresh", zap.String("auction_id", id), zap.Error(err))
		}
	}
	if len(due) > 0 {
		zap.L().Debug("syncdb.swept", zap.Int("refreshed", len(due)))
	}
	return len(due)
}
