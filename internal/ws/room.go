package ws

import (
	"sync"

	"liveauction/internal/events"
	"liveauction/internal/metrics"

	"go.uber.org/zap"
)

const replayDepth = 128

// subscriber is one receiver in a room. enqueue must not block; a false
// return means the receiver is gone or too slow and gets dropped.
type subscriber interface {
	enqueue(msg []byte) bool
	close()
}

type frame struct {
	seq   int64
	event string
	msg   []byte
}

// room fans frames of one auction out to its subscribers. Frames carry
// the register's sequence number, so a frame at or below the last one
// seen is a duplicate or arrived late and is dropped.
type room struct {
	auctionID string
	mu        sync.Mutex
	subs      map[subscriber]int64 // subscriber -> snapshot seq
	refs      int // guarded by Hub.mu
	last      int64
	ring      [replayDepth]frame
	head      int
	n         int
}

func newRoom(auctionID string) *room {
	return &room{auctionID: auctionID, subs: make(map[subscriber]int64)}
}

func (r *room) publish(msg []byte) {
	env, err := events.Decode(msg)
	if err != nil {
		metrics.RoomEvents.WithLabelValues("unknown", "malformed").Inc()
		zap.L().Warn("room.malformed_frame", zap.String("auction_id", r.auctionID), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if env.Seq <= r.last {
		metrics.RoomEvents.WithLabelValues(env.Event, "stale").Inc()
		return
	}
	r.last = env.Seq
	r.remember(frame{seq: env.Seq, event: env.Event, msg: msg})

	for s, floor := range r.subs {
		if env.Seq <= floor {
			continue
		}
		if !s.enqueue(msg) {
			delete(r.subs, s)
			go s.close()
			metrics.RoomEvents.WithLabelValues(env.Event, "dropped").Inc()
			continue
		}
		metrics.RoomEvents.WithLabelValues(env.Event, "delivered").Inc()
	}
}

func (r *room) remember(f frame) {
	r.ring[(r.head+r.n)%replayDepth] = f
	if r.n < replayDepth {
		r.n++
	} else {
		r.head = (r.head + 1) % replayDepth
	}
}

// attach sends the snapshot frame, replays buffered frames newer than the
// snapshot and then subscribes s, all under the room lock so nothing is
// delivered twice or skipped. Frames at or below the snapshot seq that
// reach the room later are withheld from s.
func (r *room) attach(s subscriber, snapshot []byte, seq int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !s.enqueue(snapshot) {
		return false
	}
	if r.n == replayDepth && r.ring[r.head].seq > seq+1 {
		zap.L().Warn("room.replay_gap",
			zap.String("auction_id", r.auctionID),
			zap.Int64("snapshot_seq", seq),
			zap.Int64("oldest_buffered", r.ring[r.head].seq),
		)
	}
	for i := 0; i < r.n; i++ {
		f := r.ring[(r.head+i)%replayDepth]
		if f.seq <= seq {
			continue
		}
		if !s.enqueue(f.msg) {
			return false
		}
	}
	r.subs[s] = seq
	return true
}

func (r *room) detach(s subscriber) {
	r.mu.Lock()
	delete(r.subs, s)
	r.mu.Unlock()
}

func (r *room) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
