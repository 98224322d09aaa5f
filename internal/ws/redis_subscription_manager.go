package ws

import (
	"context"
	"sync"

	"liveauction/internal/redis/auction_state"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed connects rooms to the source of register frames.
type Feed interface {
	// Subscribe returns once frames for the auction are being delivered to
	// the hub.
	Subscribe(ctx context.Context, auctionID string) error
	Unsubscribe(auctionID string)
}

// DirectFeed is used when the register calls Hub.Broadcast itself, as the
// in-memory register does.
type DirectFeed struct{}

func (DirectFeed) Subscribe(context.Context, string) error { return nil }
func (DirectFeed) Unsubscribe(string)                      {}

// subscriptionManager guarantees that we have exactly one Redis
// subscription per "auc:<id>:events" channel, no matter how many websocket
// clients join the same auction room.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // auctionID -> subscription data
}

type subEntry struct {
	refCnt int
	ready  chan struct{}
	err    error
	cancel context.CancelFunc
}

func NewRedisFeed(rdb *redis.Client, hub *Hub) Feed {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Subscribe ensures that the process is subscribed to the auction's channel;
// subsequent calls for the same auction only increment the ref-counter.
// Every caller waits for Redis to confirm the subscription, so a snapshot
// read afterwards cannot miss a frame.
func (sm *subscriptionManager) Subscribe(ctx context.Context, auctionID string) error {
	sm.mu.Lock()
	e, ok := sm.subs[auctionID]
	if ok {
		e.refCnt++
		sm.mu.Unlock()
		return sm.wait(ctx, auctionID, e)
	}

	// First consumer: create the Redis SUB and fan-out loop.
	subCtx, cancel := context.WithCancel(context.Background())
	e = &subEntry{refCnt: 1, ready: make(chan struct{}), cancel: cancel}
	sm.subs[auctionID] = e
	sm.mu.Unlock()

	go sm.run(subCtx, auctionID, e)
	return sm.wait(ctx, auctionID, e)
}

func (sm *subscriptionManager) wait(ctx context.Context, auctionID string, e *subEntry) error {
	select {
	case <-ctx.Done():
		sm.Unsubscribe(auctionID)
		return ctx.Err()
	case <-e.ready:
		if e.err != nil {
			sm.Unsubscribe(auctionID)
		}
		return e.err
	}
}

func (sm *subscriptionManager) run(ctx context.Context, auctionID string, e *subEntry) {
	ps := sm.rdb.Subscribe(ctx, auction_state.EventsChannel(auctionID))
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		e.err = err
		close(e.ready)
		zap.L().Warn("ws.subscribe_failed", zap.String("auction_id", auctionID), zap.Error(err))
		return
	}
	close(e.ready)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok { // Redis connection closed.
				return
			}
			sm.hub.Broadcast(auctionID, []byte(m.Payload))
		}
	}
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down when the
// last websocket client leaves the room.
func (sm *subscriptionManager) Unsubscribe(auctionID string) {
	sm.mu.Lock()
	e, ok := sm.subs[auctionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, auctionID)
	sm.mu.Unlock()

	// Outside the lock: stop the fan-out goroutine.
	e.cancel()
}
