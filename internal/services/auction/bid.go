package auction

import (
	"context"
	"encoding/json"

	"liveauction/internal/apperr"
	"liveauction/internal/events"
	"liveauction/internal/highbid"
	"liveauction/internal/metrics"
	"liveauction/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceBid validates a bid, swaps it into the register and commits it to
// the ledger. The ledger row is inserted before the swap and committed
// after it, so readers never see a ledger row the pointer did not accept.
func (s *auctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (bid *models.Bid, err error) {
	defer func() {
		result := "accepted"
		if err != nil {
			result = apperr.KindOf(err).String()
		}
		metrics.BidsTotal.WithLabelValues(result).Inc()
	}()

	if bidderID == "" {
		return nil, apperr.Validation("bidder id is required")
	}
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}

	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID == bidderID {
		return nil, apperr.Forbidden("seller cannot bid on own auction")
	}

	now := s.now().UTC()
	if _, err := s.resolve(ctx, a, now); err != nil {
		return nil, err
	}
	if a.Status != models.StatusLive {
		return nil, apperr.Conflict("auction is not live").With("status", a.Status)
	}

	b := models.Bid{
		ID:        uuid.NewString(),
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	pending, err := s.store.BeginBid(ctx, b)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := pending.Rollback(); rerr != nil {
			zap.L().Warn("bid.rollback", zap.String("bid_id", b.ID), zap.Error(rerr))
		}
	}()

	res, err := s.tracker.Place(ctx, highbid.Placement{
		AuctionID:     a.ID,
		BidID:         b.ID,
		BidderID:      bidderID,
		Amount:        amount,
		PlacedAt:      now,
		StartingPrice: a.StartingPrice,
		Increment:     a.BidIncrement,
		Deadline:      a.EndsAt(),
	}, bidPublisher(a.ID))
	if err != nil {
		return nil, err
	}

	if err := pending.Commit(ctx); err != nil {
		s.revert(ctx, a.ID, res)
		return nil, apperr.Internal("record bid", err)
	}

	zap.L().Info("bid.accepted",
		zap.String("auction_id", a.ID),
		zap.String("bid_id", b.ID),
		zap.String("bidder_id", bidderID),
		zap.Int64("amount", amount),
		zap.Int("attempts", res.Attempts),
	)

	if s.observer != nil {
		ev := models.BidAccepted{
			AuctionID:        a.ID,
			AuctionTitle:     a.Title,
			SellerID:         a.SellerID,
			Bid:              b,
			PreviousBidderID: res.Previous.BidderID,
			PreviousAmount:   res.Previous.Amount,
		}
		s.async("bid.observe", func(ctx context.Context) { s.observer.OnBidAccepted(ctx, ev) })
	}
	return &b, nil
}

// revert puts the previous leader back after a failed ledger commit. It is
// a no-op when another bid already moved the pointer past ours; that bid's
// commit supersedes the orphaned swap.
func (s *auctionService) revert(ctx context.Context, auctionID string, res *highbid.Result) {
	ctx = context.WithoutCancel(ctx)
	body, err := json.Marshal(events.BidAcceptedBody{AuctionID: auctionID, HighestBid: res.Previous.HighestBid()})
	if err != nil {
		zap.L().Error("bid.revert_encode", zap.String("auction_id", auctionID), zap.Error(err))
		return
	}
	ok, err := s.live.Revert(ctx, auctionID, res.Current, res.Previous, body)
	switch {
	case err != nil:
		zap.L().Error("bid.revert_failed", zap.String("auction_id", auctionID), zap.Error(err))
	case !ok:
		zap.L().Warn("bid.revert_superseded",
			zap.String("auction_id", auctionID),
			zap.String("bid_id", res.Current.BidID),
		)
	}
}

func bidPublisher(auctionID string) highbid.Publisher {
	return func(prev, next highbid.Pointer) (highbid.Publication, error) {
		var (
			pub highbid.Publication
			err error
		)
		pub.Accepted, err = json.Marshal(events.BidAcceptedBody{AuctionID: auctionID, HighestBid: next.HighestBid()})
		if err != nil {
			return pub, err
		}
		if prev.Exists() && prev.BidderID != next.BidderID {
			pub.Outbid, err = json.Marshal(events.OutbidBody{
				AuctionID:   auctionID,
				BidderID:    prev.BidderID,
				YourLastBid: prev.Amount,
			})
		}
		return pub, err
	}
}
