package auction_state

import (
	"context"
	"os"
	"testing"
	"time"

	"liveauction/internal/events"
	"liveauction/internal/highbid"
	"liveauction/internal/models"
	"liveauction/internal/redis/redis_functions"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the liveauction function library on a real server. Set
// LIVEAUCTION_REDIS_ADDR (for example localhost:6379) to enable them.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LIVEAUCTION_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIVEAUCTION_REDIS_ADDR not set")
	}
	rdc := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdc.Close() })

	ctx := context.Background()
	require.NoError(t, rdc.Ping(ctx).Err())
	require.NoError(t, redis_functions.LoadAll(ctx, rdc))
	return rdc
}

func freshAuction(t *testing.T, rdc *redis.Client) string {
	t.Helper()
	id := "it-" + uuid.NewString()
	t.Cleanup(func() { rdc.Del(context.Background(), Key(id)) })
	return id
}

func subscribe(t *testing.T, rdc *redis.Client, auctionID string) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	sub := rdc.Subscribe(ctx, EventsChannel(auctionID))
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	return sub.Channel()
}

func nextFrame(t *testing.T, ch <-chan *redis.Message) events.Envelope {
	t.Helper()
	select {
	case m := <-ch:
		env, err := events.Decode([]byte(m.Payload))
		require.NoError(t, err)
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}
	return events.Envelope{}
}

func TestRedis_SwapRevertAndEnd(t *testing.T) {
	rdc := redisForTest(t)
	ctx := context.Background()
	s := New(rdc)
	id := freshAuction(t, rdc)
	frames := subscribe(t, rdc, id)
	deadline := time.Now().Add(time.Minute)
	placed := time.UnixMilli(time.Now().UnixMilli()).UTC()

	ok, err := s.Seed(ctx, id, highbid.Pointer{})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Seed(ctx, id, highbid.Pointer{Amount: 1, BidderID: "late", BidID: "b0", PlacedAt: placed})
	require.NoError(t, err)
	assert.False(t, ok, "seed never overwrites")

	first := highbid.Pointer{Amount: 525, BidderID: "bidder-x", BidID: "b1", PlacedAt: placed}
	ok, err = s.CompareAndSet(ctx, id, 0, first, deadline, highbid.Publication{Accepted: []byte(`{"n":1}`)})
	require.NoError(t, err)
	assert.False(t, ok, "stale version loses")

	ok, err = s.CompareAndSet(ctx, id, 1, first, deadline, highbid.Publication{Accepted: []byte(`{"n":1}`)})
	require.NoError(t, err)
	require.True(t, ok)

	second := highbid.Pointer{Amount: 550, BidderID: "bidder-y", BidID: "b2", PlacedAt: placed}
	ok, err = s.CompareAndSet(ctx, id, 2, second, deadline,
		highbid.Publication{Accepted: []byte(`{"n":2}`), Outbid: []byte(`{"n":3}`)})
	require.NoError(t, err)
	require.True(t, ok)

	st, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Pointer.Version)
	assert.Equal(t, int64(550), st.Pointer.Amount)
	assert.Equal(t, "bidder-y", st.Pointer.BidderID)
	assert.Equal(t, "b2", st.Pointer.BidID)
	assert.Equal(t, placed, st.Pointer.PlacedAt)
	assert.Equal(t, int64(3), st.Seq)

	for i, want := range []struct {
		event string
		body  string
	}{
		{events.BidAccepted, `{"n":1}`},
		{events.BidAccepted, `{"n":2}`},
		{events.BidOutbid, `{"n":3}`},
	} {
		env := nextFrame(t, frames)
		assert.Equal(t, want.event, env.Event)
		assert.Equal(t, int64(i+1), env.Seq)
		assert.JSONEq(t, want.body, string(env.Body))
	}

	ok, err = s.Revert(ctx, id, st.Pointer, first, []byte(`{"n":4}`))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Revert(ctx, id, st.Pointer, first, []byte(`{"n":5}`))
	require.NoError(t, err)
	assert.False(t, ok, "a swap is reverted once")

	st, err = s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Pointer.Version)
	assert.Equal(t, "b1", st.Pointer.BidID)
	env := nextFrame(t, frames)
	assert.Equal(t, events.BidAccepted, env.Event)
	assert.Equal(t, int64(4), env.Seq)

	for _, to := range []models.Status{models.StatusLive, models.StatusEnded} {
		ok, err = s.AdvanceStatus(ctx, id, to, []byte(`{"auction":null}`))
		require.NoError(t, err)
		assert.True(t, ok, to)
	}
	ok, err = s.AdvanceStatus(ctx, id, models.StatusEnded, []byte(`{"auction":null}`))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.AdvanceStatus(ctx, id, models.StatusLive, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	env = nextFrame(t, frames)
	assert.Equal(t, events.AuctionEnded, env.Event)
	assert.Equal(t, int64(5), env.Seq)

	_, err = s.CompareAndSet(ctx, id, 4, second, deadline, highbid.Publication{Accepted: []byte(`{}`)})
	assert.ErrorIs(t, err, highbid.ErrAuctionClosed)

	seq, err := s.Publish(ctx, id, events.SellerDecision, []byte(`{"status":"ACCEPT"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq)
	env = nextFrame(t, frames)
	assert.Equal(t, events.SellerDecision, env.Event)
	assert.Equal(t, int64(6), env.Seq)
}

func TestRedis_DeadlineRefusesSwap(t *testing.T) {
	rdc := redisForTest(t)
	ctx := context.Background()
	s := New(rdc)
	id := freshAuction(t, rdc)

	_, err := s.CompareAndSet(ctx, id, 0, highbid.Pointer{Amount: 525, BidderID: "bidder-x", BidID: "b1"},
		time.Now().Add(-time.Minute), highbid.Publication{Accepted: []byte(`{}`)})
	assert.ErrorIs(t, err, highbid.ErrAuctionClosed)

	st, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.Pointer.Exists())
}

func TestRedis_SeedRestoresLedgerLeader(t *testing.T) {
	rdc := redisForTest(t)
	ctx := context.Background()
	s := New(rdc)
	id := freshAuction(t, rdc)
	placed := time.UnixMilli(time.Now().UnixMilli()).UTC()

	// A status hint alone does not count as a pointer.
	_, err := s.AdvanceStatus(ctx, id, models.StatusLive, nil)
	require.NoError(t, err)

	leader := highbid.Pointer{Amount: 900, BidderID: "bidder-x", BidID: "b7", PlacedAt: placed}
	ok, err := s.Seed(ctx, id, leader)
	require.NoError(t, err)
	require.True(t, ok)

	st, err := s.Load(ctx, id)
	require.NoError(t, err)
	leader.Version = 1
	assert.Equal(t, leader, st.Pointer)
	assert.Equal(t, models.StatusLive, st.Status)
	assert.Zero(t, st.Seq, "seeding publishes nothing")
}
