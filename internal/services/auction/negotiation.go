package auction

import (
	"context"
	"encoding/json"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/events"
	"liveauction/internal/metrics"
	"liveauction/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NegotiationResult is the auction after a decision or a counter response.
type NegotiationResult struct {
	Auction      *models.Auction         `json:"auction"`
	State        models.NegotiationState `json:"state"`
	CounterOffer *models.CounterOffer    `json:"counterOffer,omitempty"`
}

// Decide applies the seller's decision on the highest bid of an ENDED
// auction: ACCEPT and REJECT close it, COUNTER opens a counter offer to the
// winning bidder.
func (s *auctionService) Decide(ctx context.Context, auctionID, actorID string, action models.DecisionAction,
	counterPrice *int64) (*NegotiationResult, error) {

	if !action.Valid() {
		return nil, apperr.Validation("unknown decision").With("action", action)
	}
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != actorID {
		return nil, apperr.Forbidden("only the seller can decide")
	}

	now := s.now().UTC()
	st, err := s.resolve(ctx, a, now)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case models.StatusEnded:
	case models.StatusClosed:
		return nil, apperr.Conflict("auction already decided")
	default:
		return nil, apperr.Conflict("auction has not ended").With("status", a.Status)
	}

	hb := st.Pointer
	if !hb.Exists() {
		return nil, apperr.NotFound("auction has no bids")
	}
	pending, err := s.store.PendingCounterOffer(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, apperr.Conflict("counter offer already pending")
	}

	switch action {
	case models.ActionCounter:
		if counterPrice == nil || *counterPrice <= hb.Amount {
			return nil, apperr.Validation("counter price must exceed the highest bid").With("highestBid", hb.Amount)
		}
		co := &models.CounterOffer{
			ID:        uuid.NewString(),
			AuctionID: a.ID,
			SellerID:  a.SellerID,
			BidderID:  hb.BidderID,
			Price:     *counterPrice,
			Status:    models.CounterPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateCounterOffer(ctx, co); err != nil {
			return nil, err
		}
		metrics.NegotiationOutcomes.WithLabelValues(string(models.NegotiationCounterPending)).Inc()
		zap.L().Info("negotiation.counter_offered",
			zap.String("auction_id", a.ID),
			zap.String("bidder_id", co.BidderID),
			zap.Int64("price", co.Price),
		)
		s.publish(ctx, a.ID, events.SellerDecision, events.SellerDecisionBody{
			AuctionID:    a.ID,
			Status:       string(models.ActionCounter),
			CounterPrice: &co.Price,
		})
		s.notify(co.BidderID, models.NotifyCounterOffer, negotiationPayload{
			AuctionID: a.ID, AuctionTitle: a.Title, Price: co.Price,
		})
		return &NegotiationResult{Auction: a, State: models.NegotiationCounterPending, CounterOffer: co}, nil

	case models.ActionAccept:
		price := hb.Amount
		if err := s.store.CloseAuction(ctx, a.ID, models.OutcomeAccepted, &price); err != nil {
			return nil, err
		}
		closeLocal(a, models.OutcomeAccepted, &price, now)
		s.closed(ctx, a, events.SellerDecision, events.SellerDecisionBody{
			AuctionID: a.ID, Status: string(models.OutcomeAccepted),
		})
		s.notify(hb.BidderID, models.NotifyAccepted, negotiationPayload{
			AuctionID: a.ID, AuctionTitle: a.Title, Price: price,
		})
		s.completeSale(a, hb.BidderID, price)
		return &NegotiationResult{Auction: a, State: models.NegotiationAccepted}, nil

	default:
		if err := s.store.CloseAuction(ctx, a.ID, models.OutcomeRejected, nil); err != nil {
			return nil, err
		}
		closeLocal(a, models.OutcomeRejected, nil, now)
		s.closed(ctx, a, events.SellerDecision, events.SellerDecisionBody{
			AuctionID: a.ID, Status: string(models.OutcomeRejected),
		})
		s.notify(hb.BidderID, models.NotifyRejected, negotiationPayload{
			AuctionID: a.ID, AuctionTitle: a.Title, Price: hb.Amount,
		})
		return &NegotiationResult{Auction: a, State: models.NegotiationRejected}, nil
	}
}

// RespondToCounter lets the offered bidder settle a pending counter offer.
func (s *auctionService) RespondToCounter(ctx context.Context, auctionID, actorID string, accept bool) (*NegotiationResult, error) {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	co, err := s.store.ResolveCounterOffer(ctx, a.ID, actorID, accept)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	outcome := models.OutcomeCounterRejected
	state := models.NegotiationCounterRejected
	var final *int64
	if accept {
		outcome = models.OutcomeCounterAccepted
		state = models.NegotiationCounterAccepted
		final = &co.Price
	}
	closeLocal(a, outcome, final, now)
	s.closed(ctx, a, events.CounterResponse, events.CounterResponseBody{AuctionID: a.ID, Accepted: accept})

	payload := negotiationPayload{AuctionID: a.ID, AuctionTitle: a.Title, Price: co.Price}
	if accept {
		s.notify(a.SellerID, models.NotifyAccepted, payload)
		s.notify(co.BidderID, models.NotifyAccepted, payload)
		s.completeSale(a, co.BidderID, co.Price)
	} else {
		s.notify(a.SellerID, models.NotifyRejected, payload)
	}
	return &NegotiationResult{Auction: a, State: state, CounterOffer: co}, nil
}

type negotiationPayload struct {
	AuctionID    string `json:"auctionId"`
	AuctionTitle string `json:"auctionTitle"`
	Price        int64  `json:"price"`
}

func closeLocal(a *models.Auction, outcome models.Outcome, final *int64, now time.Time) {
	a.Status = models.StatusClosed
	a.Outcome = outcome
	a.FinalPrice = final
	a.UpdatedAt = now
}

// closed announces a terminal outcome and moves the register hint to
// CLOSED so no later swap can land.
func (s *auctionService) closed(ctx context.Context, a *models.Auction, event string, body any) {
	metrics.NegotiationOutcomes.WithLabelValues(string(a.Outcome)).Inc()
	zap.L().Info("negotiation.closed",
		zap.String("auction_id", a.ID),
		zap.String("outcome", string(a.Outcome)),
	)
	s.publish(ctx, a.ID, event, body)
	if _, err := s.live.AdvanceStatus(ctx, a.ID, models.StatusClosed, nil); err != nil {
		zap.L().Warn("auction.advance_hint", zap.String("auction_id", a.ID), zap.Error(err))
	}
}

func (s *auctionService) publish(ctx context.Context, auctionID, event string, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		zap.L().Error("room.encode", zap.String("event", event), zap.Error(err))
		return
	}
	if _, err := s.live.Publish(ctx, auctionID, event, raw); err != nil {
		metrics.RoomEvents.WithLabelValues(event, "publish_failed").Inc()
		zap.L().Warn("room.publish", zap.String("auction_id", auctionID), zap.String("event", event), zap.Error(err))
	}
}

func (s *auctionService) notify(userID string, typ models.NotificationType, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Record(context.Background(), userID, typ, payload)
}

func (s *auctionService) completeSale(a *models.Auction, buyerID string, price int64) {
	if s.fulfill == nil {
		return
	}
	sale := models.Sale{
		AuctionID:    a.ID,
		AuctionTitle: a.Title,
		SellerID:     a.SellerID,
		BuyerID:      buyerID,
		Price:        price,
		Outcome:      a.Outcome,
	}
	s.async("sale.fulfill", func(ctx context.Context) {
		if err := s.fulfill.CompleteSale(ctx, sale); err != nil {
			zap.L().Error("sale.fulfill", zap.String("auction_id", sale.AuctionID), zap.Error(err))
		}
	})
}
