package auction

import (
	"context"
	"encoding/json"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/events"
	"liveauction/internal/highbid"
	"liveauction/internal/models"

	"go.uber.org/zap"
)

// Snapshot is what a room joiner receives. Seq is the register position
// the snapshot was read at; room frames at or below it are already
// reflected in State.
type Snapshot struct {
	State events.AuctionStateBody
	Seq   int64
}

// resolve merges the stored status, the register's status hint and the
// clock, writes a.Status and pushes any forward transition to both stores.
// The returned state is the register content after the transition.
func (s *auctionService) resolve(ctx context.Context, a *models.Auction, now time.Time) (highbid.State, error) {
	st, err := s.live.Load(ctx, a.ID)
	if err != nil {
		return st, apperr.Internal("load live state", err)
	}

	merged := models.MergeStatus(a.Status, st.Status, models.DeriveStatus(a.Schedule(), now))
	stored := a.Status
	a.Status = merged

	if st.Pointer.Version == 0 && merged != models.StatusScheduled {
		if st, err = s.reseed(ctx, a.ID); err != nil {
			return st, err
		}
	}

	if merged != models.StatusClosed && merged.Rank() > stored.Rank() {
		if _, err := s.store.AdvanceStatus(ctx, a.ID, merged); err != nil {
			zap.L().Warn("auction.persist_status", zap.String("auction_id", a.ID), zap.Error(err))
		}
	}
	if merged.Rank() > st.Status.Rank() {
		var body []byte
		if merged == models.StatusEnded {
			if body, err = json.Marshal(events.AuctionEndedBody{Auction: a}); err != nil {
				return st, apperr.Internal("encode auction ended", err)
			}
		}
		advanced, err := s.live.AdvanceStatus(ctx, a.ID, merged, body)
		if err != nil {
			zap.L().Warn("auction.advance_hint", zap.String("auction_id", a.ID), zap.Error(err))
			return st, nil
		}
		if advanced {
			zap.L().Info("auction.status_changed",
				zap.String("auction_id", a.ID),
				zap.String("from", string(st.Status)),
				zap.String("to", string(merged)),
			)
			if st, err = s.live.Load(ctx, a.ID); err != nil {
				return st, apperr.Internal("load live state", err)
			}
		}
	}
	return st, nil
}

// reseed rebuilds a missing pointer from the ledger's highest committed bid.
// A register with no bids still gets version 1, so the ledger is read once.
func (s *auctionService) reseed(ctx context.Context, auctionID string) (highbid.State, error) {
	hb, err := s.store.HighestBid(ctx, auctionID)
	if err != nil {
		return highbid.State{}, err
	}
	var p highbid.Pointer
	if hb != nil {
		p = highbid.Pointer{Amount: hb.Amount, BidderID: hb.BidderID, BidID: hb.ID, PlacedAt: hb.CreatedAt}
	}
	seeded, err := s.live.Seed(ctx, auctionID, p)
	if err != nil {
		return highbid.State{}, apperr.Internal("seed live state", err)
	}
	if seeded {
		zap.L().Warn("auction.register_reseeded",
			zap.String("auction_id", auctionID),
			zap.Int64("amount", p.Amount),
		)
	}
	st, err := s.live.Load(ctx, auctionID)
	if err != nil {
		return st, apperr.Internal("load live state", err)
	}
	return st, nil
}

func (s *auctionService) Refresh(ctx context.Context, auctionID string) error {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	_, err = s.resolve(ctx, a, s.now())
	return err
}

func (s *auctionService) Snapshot(ctx context.Context, auctionID string) (*Snapshot, error) {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	st, err := s.resolve(ctx, a, now)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		State: events.AuctionStateBody{
			Auction:    a,
			HighestBid: st.Pointer.HighestBid(),
			TimeLeftMs: a.Schedule().TimeLeft(now).Milliseconds(),
		},
		Seq: st.Seq,
	}
	return snap, nil
}
