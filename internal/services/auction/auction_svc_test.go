package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/database/memstore"
	"liveauction/internal/database/repository"
	"liveauction/internal/events"
	"liveauction/internal/highbid"
	"liveauction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type notification struct {
	UserID string
	Type   models.NotificationType
}

type recorder struct {
	mu     sync.Mutex
	notes  []notification
	sales  []models.Sale
	bids   []models.BidAccepted
	frames []events.Envelope
}

func (r *recorder) Record(_ context.Context, userID string, typ models.NotificationType, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, notification{userID, typ})
}

func (r *recorder) CompleteSale(_ context.Context, sale models.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
	return nil
}

func (r *recorder) OnBidAccepted(_ context.Context, e models.BidAccepted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, e)
}

func (r *recorder) sink(_ string, msg []byte) {
	env, err := events.Decode(msg)
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.frames = append(r.frames, env)
	r.mu.Unlock()
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if f.Event == event {
			n++
		}
	}
	return n
}

// last returns the most recent frame of the given event.
func (r *recorder) last(event string) (events.Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Event == event {
			return r.frames[i], true
		}
	}
	return events.Envelope{}, false
}

func (r *recorder) notified(userID string, typ models.NotificationType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.UserID == userID && n.Type == typ {
			return true
		}
	}
	return false
}

type fixture struct {
	svc   IAuctionService
	store *memstore.Store
	live  *highbid.Memory
	clock *clock
	rec   *recorder
}

func newFixture(t *testing.T, store repository.AuctionStore) *fixture {
	t.Helper()
	f := &fixture{clock: &clock{now: t0}, rec: &recorder{}}
	ms := memstore.New()
	f.store = ms
	if store == nil {
		store = ms
	}
	f.live = highbid.NewMemory(f.rec.sink, highbid.WithClock(f.clock.Now))
	f.svc = NewAuctionService(store, f.live, nil,
		WithClock(f.clock.Now),
		WithTrackerOptions(highbid.WithRetryBackoff(0), highbid.WithMaxAttempts(50)),
		WithBidObserver(f.rec),
		WithNotifier(f.rec),
		WithFulfiller(f.rec),
	)
	return f
}

// liveAuction creates an auction that goes live a minute after t0 and
// moves the clock into the bidding window.
func (f *fixture) liveAuction(t *testing.T) *models.Auction {
	t.Helper()
	a, err := f.svc.CreateAuction(context.Background(), "seller-s", CreateAuctionInput{
		Title:           "Vintage lamp",
		Description:     "A brass lamp from 1962",
		StartingPrice:   500,
		BidIncrement:    25,
		GoLiveAt:        t0.Add(time.Minute),
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	f.clock.Set(t0.Add(2 * time.Minute))
	return a
}

func (f *fixture) end(a *models.Auction) {
	f.clock.Set(a.EndsAt().Add(time.Second))
}

func TestCreateAuction_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateAuction(ctx, "seller-s", CreateAuctionInput{
		Title: "ab", Description: "long enough text", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: t0.Add(time.Hour), DurationMinutes: 30,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	fields, ok := apperr.DetailsOf(err)["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "min", fields["title"])

	_, err = f.svc.CreateAuction(ctx, "seller-s", CreateAuctionInput{
		Title: "Vintage lamp", Description: "long enough text", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: t0.Add(-time.Minute), DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CreateAuction(ctx, "seller-s", CreateAuctionInput{
		Title: "Vintage lamp", Description: "long enough text", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: t0.Add(time.Minute), DurationMinutes: 1441,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestScenarioA_ConcurrentEqualBids(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	b, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	require.NoError(t, err)
	assert.Equal(t, int64(525), b.Amount)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, bidder := range []string{"bidder-y", "bidder-z"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceBid(ctx, a.ID, bidder, 550)
		}()
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			k := apperr.KindOf(err)
			assert.True(t, k == apperr.KindConflict || k == apperr.KindValidation, "unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, failures)

	v, err := f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, v.HighestBid)
	assert.Equal(t, int64(550), v.HighestBid.Amount)

	bids, err := f.svc.ListBids(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Len(t, bids, 2)
}

func TestPlaceBid_LedgerMatchesAcceptedBids(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []int64
	)
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			amt := int64(525 + 25*(i%12))
			if _, err := f.svc.PlaceBid(ctx, a.ID, fmt.Sprintf("bidder-%d", i), amt); err == nil {
				mu.Lock()
				accepted = append(accepted, amt)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	bids, err := f.svc.ListBids(ctx, a.ID, 200)
	require.NoError(t, err)
	require.Len(t, bids, len(accepted))
	require.NotEmpty(t, bids)

	// Ledger is strictly increasing and its maximum is the pointer.
	for i := 1; i < len(bids); i++ {
		assert.Less(t, bids[i].Amount, bids[i-1].Amount)
	}
	st, err := f.live.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, bids[0].Amount, st.Pointer.Amount)
	assert.Equal(t, bids[0].ID, st.Pointer.BidID)
	assert.Equal(t, len(bids), f.rec.count(events.BidAccepted))
}

func TestPlaceBid_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, err := f.svc.CreateAuction(ctx, "seller-s", CreateAuctionInput{
		Title: "Vintage lamp", Description: "A brass lamp from 1962", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: t0.Add(time.Minute), DurationMinutes: 30,
	})
	require.NoError(t, err)

	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	assert.ErrorIs(t, err, apperr.ErrConflict, "scheduled auction")

	f.clock.Set(t0.Add(2 * time.Minute))

	_, err = f.svc.PlaceBid(ctx, a.ID, "seller-s", 525)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-x", 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-x", 510)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(525), apperr.DetailsOf(err)["minBid"])

	_, err = f.svc.PlaceBid(ctx, "missing", "bidder-x", 525)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	bids, _ := f.svc.ListBids(ctx, a.ID, 0)
	assert.Empty(t, bids)

	f.end(a)
	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	assert.ErrorIs(t, err, apperr.ErrConflict, "ended auction")
}

func TestPlaceBid_ObserverSeesOutbid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-y", 550)
	require.NoError(t, err)

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.bids, 2)
	assert.False(t, f.rec.bids[0].Outbid())
	assert.True(t, f.rec.bids[1].Outbid())
	assert.Equal(t, "bidder-x", f.rec.bids[1].PreviousBidderID)
	assert.Equal(t, int64(525), f.rec.bids[1].PreviousAmount)
}

type failingCommitStore struct {
	*memstore.Store
}

type failingCommit struct{ repository.PendingBid }

func (failingCommit) Commit(context.Context) error { return errors.New("connection reset") }

func (s failingCommitStore) BeginBid(ctx context.Context, b models.Bid) (repository.PendingBid, error) {
	p, err := s.Store.BeginBid(ctx, b)
	if err != nil {
		return nil, err
	}
	return failingCommit{p}, nil
}

func TestPlaceBid_CommitFailureRevertsPointer(t *testing.T) {
	ms := memstore.New()
	f := newFixture(t, failingCommitStore{ms})
	ctx := context.Background()

	a, err := f.svc.CreateAuction(ctx, "seller-s", CreateAuctionInput{
		Title: "Vintage lamp", Description: "A brass lamp from 1962", StartingPrice: 500, BidIncrement: 25,
		GoLiveAt: t0.Add(time.Minute), DurationMinutes: 30,
	})
	require.NoError(t, err)
	f.clock.Set(t0.Add(2 * time.Minute))

	_, err = f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	assert.ErrorIs(t, err, apperr.ErrInternal)

	st, err := f.live.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, st.Pointer.Exists())

	bids, _ := ms.ListBids(ctx, a.ID, 0)
	assert.Empty(t, bids)
}

func TestScenarioB_CounterOfferAccepted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	for _, bid := range []struct {
		bidder string
		amount int64
	}{{"bidder-y", 600}, {"bidder-x", 700}} {
		_, err := f.svc.PlaceBid(ctx, a.ID, bid.bidder, bid.amount)
		require.NoError(t, err)
	}
	f.end(a)

	price := int64(750)
	res, err := f.svc.Decide(ctx, a.ID, "seller-s", models.ActionCounter, &price)
	require.NoError(t, err)
	assert.Equal(t, models.NegotiationCounterPending, res.State)
	assert.Equal(t, models.StatusEnded, res.Auction.Status)

	v, err := f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, v.Status)
	require.NotNil(t, v.CounterOffer)
	assert.Equal(t, models.CounterPending, v.CounterOffer.Status)
	assert.Equal(t, int64(750), v.CounterOffer.Price)
	assert.Equal(t, "bidder-x", v.CounterOffer.BidderID)
	assert.True(t, f.rec.notified("bidder-x", models.NotifyCounterOffer))

	env, ok := f.rec.last(events.SellerDecision)
	require.True(t, ok)
	var decision events.SellerDecisionBody
	require.NoError(t, json.Unmarshal(env.Body, &decision))
	assert.Equal(t, "COUNTER", decision.Status)
	require.NotNil(t, decision.CounterPrice)
	assert.Equal(t, int64(750), *decision.CounterPrice)

	_, err = f.svc.RespondToCounter(ctx, a.ID, "bidder-y", true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	res, err = f.svc.RespondToCounter(ctx, a.ID, "bidder-x", true)
	require.NoError(t, err)
	assert.Equal(t, models.CounterAccepted, res.CounterOffer.Status)
	assert.Equal(t, models.NegotiationCounterAccepted, res.State)

	v, err = f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, v.Status)
	assert.Equal(t, models.OutcomeCounterAccepted, v.Outcome)
	require.NotNil(t, v.FinalPrice)
	assert.Equal(t, int64(750), *v.FinalPrice)

	assert.True(t, f.rec.notified("bidder-x", models.NotifyAccepted))
	assert.True(t, f.rec.notified("seller-s", models.NotifyAccepted))
	require.Len(t, f.rec.sales, 1)
	assert.Equal(t, int64(750), f.rec.sales[0].Price)
	assert.Equal(t, "bidder-x", f.rec.sales[0].BuyerID)

	_, err = f.svc.RespondToCounter(ctx, a.ID, "bidder-x", false)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 1, f.rec.count(events.CounterResponse))
}

func TestScenarioC_DecisionWhileLive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionAccept, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	v, err := f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, v.Status)
	assert.Equal(t, models.OutcomeNone, v.Outcome)
	assert.Zero(t, f.rec.count(events.SellerDecision))
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	f.end(a)

	_, err := f.svc.Decide(ctx, a.ID, "bidder-x", models.ActionAccept, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionAccept, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "no bids")

	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.DecisionAction("MAYBE"), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RespondToCounter(ctx, a.ID, "bidder-x", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "no counter offer")
}

func TestDecide_CounterPriceAndPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 700)
	require.NoError(t, err)
	f.end(a)

	low := int64(700)
	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionCounter, &low)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionCounter, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	price := int64(800)
	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionCounter, &price)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, a.ID, "seller-s", models.ActionAccept, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	res, err := f.svc.RespondToCounter(ctx, a.ID, "bidder-x", false)
	require.NoError(t, err)
	assert.Equal(t, models.NegotiationCounterRejected, res.State)
	assert.Equal(t, models.StatusClosed, res.Auction.Status)
	assert.Nil(t, res.Auction.FinalPrice)
	assert.True(t, f.rec.notified("seller-s", models.NotifyRejected))
	assert.Empty(t, f.rec.sales)
}

func TestDecide_AcceptAndReject(t *testing.T) {
	for _, tc := range []struct {
		action  models.DecisionAction
		outcome models.Outcome
		note    models.NotificationType
		sales   int
	}{
		{models.ActionAccept, models.OutcomeAccepted, models.NotifyAccepted, 1},
		{models.ActionReject, models.OutcomeRejected, models.NotifyRejected, 0},
	} {
		t.Run(string(tc.action), func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			a := f.liveAuction(t)
			_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
			require.NoError(t, err)
			f.end(a)

			res, err := f.svc.Decide(ctx, a.ID, "seller-s", tc.action, nil)
			require.NoError(t, err)
			assert.Equal(t, models.StatusClosed, res.Auction.Status)
			assert.Equal(t, tc.outcome, res.Auction.Outcome)
			assert.True(t, f.rec.notified("bidder-x", tc.note))
			assert.Len(t, f.rec.sales, tc.sales)

			_, err = f.svc.Decide(ctx, a.ID, "seller-s", tc.action, nil)
			assert.ErrorIs(t, err, apperr.ErrConflict)
			assert.Equal(t, 1, f.rec.count(events.SellerDecision))
		})
	}
}

func TestAuctionEndedPublishedOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	f.end(a)

	for range 3 {
		require.NoError(t, f.svc.Refresh(ctx, a.ID))
		_, err := f.svc.GetAuction(ctx, a.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.rec.count(events.AuctionEnded))

	stored, err := f.store.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, stored.Status)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, snap.State.Auction.Status)
	require.NotNil(t, snap.State.HighestBid)
	assert.Equal(t, int64(525), snap.State.HighestBid.Amount)
	assert.Equal(t, (29 * time.Minute).Milliseconds(), snap.State.TimeLeftMs)
	assert.Equal(t, int64(1), snap.Seq)
}

// restarted returns a service over the same ledger with an empty register,
// as after Redis lost the auction hashes.
func (f *fixture) restarted() (IAuctionService, *highbid.Memory) {
	live := highbid.NewMemory(f.rec.sink, highbid.WithClock(f.clock.Now))
	svc := NewAuctionService(f.store, live, nil,
		WithClock(f.clock.Now),
		WithTrackerOptions(highbid.WithRetryBackoff(0)),
		WithBidObserver(f.rec),
		WithNotifier(f.rec),
		WithFulfiller(f.rec),
	)
	return svc, live
}

func TestRegisterLoss_ResumesFromLedger(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	for _, bid := range []struct {
		bidder string
		amount int64
	}{{"bidder-y", 600}, {"bidder-x", 900}} {
		_, err := f.svc.PlaceBid(ctx, a.ID, bid.bidder, bid.amount)
		require.NoError(t, err)
	}

	svc, live := f.restarted()

	_, err := svc.PlaceBid(ctx, a.ID, "bidder-z", 525)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(925), apperr.DetailsOf(err)["minBid"])

	v, err := svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, v.HighestBid)
	assert.Equal(t, "bidder-x", v.HighestBid.BidderID)
	assert.Equal(t, int64(900), v.HighestBid.Amount)

	st, err := live.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Pointer.Version)

	f.end(a)
	res, err := svc.Decide(ctx, a.ID, "seller-s", models.ActionAccept, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Auction.FinalPrice)
	assert.Equal(t, int64(900), *res.Auction.FinalPrice)
	require.Len(t, f.rec.sales, 1)
	assert.Equal(t, "bidder-x", f.rec.sales[0].BuyerID)
	assert.Equal(t, int64(900), f.rec.sales[0].Price)
}

func TestRegisterLoss_NextBidOutbidsLedgerLeader(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	_, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 900)
	require.NoError(t, err)

	svc, _ := f.restarted()
	_, err = svc.PlaceBid(ctx, a.ID, "bidder-z", 925)
	require.NoError(t, err)

	require.Len(t, f.rec.bids, 2)
	assert.Equal(t, "bidder-x", f.rec.bids[1].PreviousBidderID)
	assert.Equal(t, int64(900), f.rec.bids[1].PreviousAmount)
	assert.True(t, f.rec.bids[1].Outbid())
}

func TestRegisterSeededOnceWithoutBids(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	_, err := f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	st, err := f.live.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Pointer.Version)
	assert.False(t, st.Pointer.Exists())

	b, err := f.svc.PlaceBid(ctx, a.ID, "bidder-x", 525)
	require.NoError(t, err)
	st, err = f.live.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Pointer.Version)
	assert.Equal(t, b.ID, st.Pointer.BidID)
}

func TestTimeLeft_CountsDownBeforeGoLive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)
	f.clock.Set(t0)

	v, err := f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, v.Status)
	assert.Equal(t, (31 * time.Minute).Milliseconds(), v.TimeLeftMs)

	snap, err := f.svc.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, (31 * time.Minute).Milliseconds(), snap.State.TimeLeftMs)

	f.end(a)
	v, err = f.svc.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, v.Status)
	assert.Zero(t, v.TimeLeftMs)
}

func TestListAuctions_UsesDerivedStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.liveAuction(t)

	list, err := f.svc.ListAuctions(ctx, ListInput{Status: models.StatusLive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = f.svc.ListAuctions(ctx, ListInput{Status: models.StatusScheduled})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListAuctions(ctx, ListInput{Status: "OPEN"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
