package ws

import (
	"sync"
)

// Hub keeps one room per auction that has at least one subscriber.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*room)} }

// Broadcast hands a register frame to the auction's room. Frames for
// auctions nobody watches are dropped; joiners start from a snapshot.
func (h *Hub) Broadcast(auctionID string, msg []byte) {
	h.mu.Lock()
	r := h.rooms[auctionID]
	h.mu.Unlock()
	if r != nil {
		r.publish(msg)
	}
}

// acquire returns the auction's room, creating it, and takes a reference.
// The room starts buffering frames immediately, before the caller has
// read its snapshot.
func (h *Hub) acquire(auctionID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[auctionID]
	if !ok {
		r = newRoom(auctionID)
		h.rooms[auctionID] = r
	}
	r.refs++
	return r
}

// release detaches s and drops the reference taken by acquire.
func (h *Hub) release(auctionID string, s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[auctionID]
	if !ok {
		return
	}
	if s != nil {
		r.detach(s)
	}
	r.refs--
	if r.refs <= 0 {
		delete(h.rooms, auctionID)
	}
}

func (h *Hub) size(auctionID string) int {
	h.mu.Lock()
	r := h.rooms[auctionID]
	h.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.len()
}
