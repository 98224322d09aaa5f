package memstore

import (
	"context"
	"testing"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, id string, goLive time.Time) {
	t.Helper()
	require.NoError(t, s.CreateAuction(context.Background(), &models.Auction{
		ID: id, SellerID: "seller-s", Title: "Vintage lamp", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: goLive, DurationMinutes: 30, Status: models.StatusScheduled,
	}))
}

func TestPendingBidInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())

	p, err := s.BeginBid(ctx, models.Bid{ID: "b1", AuctionID: "a1", BidderID: "bidder-x", Amount: 525})
	require.NoError(t, err)

	bids, err := s.ListBids(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Empty(t, bids)

	require.NoError(t, p.Commit(ctx))
	bids, err = s.ListBids(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestRolledBackBidNeverAppears(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())

	p, err := s.BeginBid(ctx, models.Bid{ID: "b1", AuctionID: "a1", BidderID: "bidder-x", Amount: 525})
	require.NoError(t, err)
	require.NoError(t, p.Rollback())
	assert.Error(t, p.Commit(ctx))

	bids, _ := s.ListBids(ctx, "a1", 0)
	assert.Empty(t, bids)
}

func TestListBidsHighestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())
	for i, amt := range []int64{525, 550, 600} {
		p, err := s.BeginBid(ctx, models.Bid{ID: string(rune('a' + i)), AuctionID: "a1", BidderID: "bidder-x", Amount: amt})
		require.NoError(t, err)
		require.NoError(t, p.Commit(ctx))
	}
	bids, err := s.ListBids(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, int64(600), bids[0].Amount)
	assert.Equal(t, int64(550), bids[1].Amount)
}

func TestHighestBidIgnoresUncommitted(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())

	hb, err := s.HighestBid(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, hb)

	p, err := s.BeginBid(ctx, models.Bid{ID: "b1", AuctionID: "a1", BidderID: "bidder-x", Amount: 900})
	require.NoError(t, err)
	pending, err := s.BeginBid(ctx, models.Bid{ID: "b2", AuctionID: "a1", BidderID: "bidder-y", Amount: 925})
	require.NoError(t, err)
	require.NoError(t, p.Commit(ctx))

	hb, err = s.HighestBid(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, hb)
	assert.Equal(t, "b1", hb.ID)
	assert.Equal(t, int64(900), hb.Amount)
	require.NoError(t, pending.Rollback())
}

func TestAdvanceStatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())

	ok, err := s.AdvanceStatus(ctx, "a1", models.StatusEnded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AdvanceStatus(ctx, "a1", models.StatusLive)
	require.NoError(t, err)
	assert.False(t, ok)

	a, _ := s.GetAuction(ctx, "a1")
	assert.Equal(t, models.StatusEnded, a.Status)
}

func TestCounterOfferLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())

	co := &models.CounterOffer{ID: "c1", AuctionID: "a1", SellerID: "seller-s", BidderID: "bidder-y",
		Price: 600, Status: models.CounterPending}
	require.NoError(t, s.CreateCounterOffer(ctx, co))

	err := s.CreateCounterOffer(ctx, &models.CounterOffer{ID: "c2", AuctionID: "a1", Status: models.CounterPending})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = s.CloseAuction(ctx, "a1", models.OutcomeAccepted, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.ResolveCounterOffer(ctx, "a1", "bidder-x", true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := s.ResolveCounterOffer(ctx, "a1", "bidder-y", true)
	require.NoError(t, err)
	assert.Equal(t, models.CounterAccepted, got.Status)

	_, err = s.ResolveCounterOffer(ctx, "a1", "bidder-y", false)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	a, _ := s.GetAuction(ctx, "a1")
	assert.Equal(t, models.StatusClosed, a.Status)
	assert.Equal(t, models.OutcomeCounterAccepted, a.Outcome)
	require.NotNil(t, a.FinalPrice)
	assert.Equal(t, int64(600), *a.FinalPrice)

	_, err = s.ResolveCounterOffer(ctx, "other", "bidder-y", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAuctionsFilterAndPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, "a1", base)
	seed(t, s, "a2", base.Add(time.Hour))
	seed(t, s, "a3", base.Add(2*time.Hour))
	_, _ = s.AdvanceStatus(ctx, "a1", models.StatusEnded)

	list, err := s.ListAuctions(ctx, repository.ListFilter{Statuses: []models.Status{models.StatusScheduled}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a3", list[0].ID)

	list, err = s.ListAuctions(ctx, repository.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)

	list, err = s.ListAuctions(ctx, repository.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotificationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertNotification(ctx, &models.Notification{ID: "n1", UserID: "u", Type: models.NotifyNewBid}))
	require.NoError(t, s.InsertNotification(ctx, &models.Notification{ID: "n2", UserID: "u", Type: models.NotifyOutbid}))

	list, err := s.ListNotifications(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)

	require.NoError(t, s.MarkNotificationRead(ctx, "n1", "u"))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "n1", "other"), apperr.ErrNotFound)
}

func TestResolveCounterOffer_AuctionAlreadyClosed(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "a1", time.Now())
	require.NoError(t, s.CreateCounterOffer(ctx, &models.CounterOffer{ID: "c1", AuctionID: "a1",
		SellerID: "seller-s", BidderID: "bidder-y", Price: 600, Status: models.CounterPending}))

	s.mu.Lock()
	s.auctions["a1"].Status = models.StatusClosed
	s.mu.Unlock()

	_, err := s.ResolveCounterOffer(ctx, "a1", "bidder-y", true)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	s.mu.Lock()
	assert.Equal(t, models.CounterPending, s.counters["a1"][0].Status)
	s.mu.Unlock()
}
