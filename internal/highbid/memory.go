package highbid

import (
	"context"
	"sync"
	"time"

	"liveauction/internal/events"
	"liveauction/internal/models"
)

// Memory is a single-process register. It honours the same contract as the
// Redis register and is used by STATE_DRIVER=memory and by tests. Frames
// are handed to sink while the register lock is held, so sink sees them in
// commit order and must not block for long.
type Memory struct {
	mu     sync.Mutex
	states map[string]*State
	sink   func(auctionID string, msg []byte)
	now    func() time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(sink func(auctionID string, msg []byte), opts ...MemoryOption) *Memory {
	m := &Memory{
		states: make(map[string]*State),
		sink:   sink,
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) state(id string) *State {
	st, ok := m.states[id]
	if !ok {
		st = &State{}
		m.states[id] = st
	}
	return st
}

func (m *Memory) emit(id string, st *State, event string, body []byte) int64 {
	st.Seq++
	if m.sink != nil {
		m.sink(id, events.Encode(event, st.Seq, body))
	}
	return st.Seq
}

func (m *Memory) Load(_ context.Context, auctionID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[auctionID]; ok {
		return *st, nil
	}
	return State{}, nil
}

func (m *Memory) CompareAndSet(_ context.Context, auctionID string, expect int64, next Pointer, deadline time.Time, pub Publication) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(auctionID)
	if st.Status.Rank() >= models.StatusEnded.Rank() || !m.now().Before(deadline) {
		return false, ErrAuctionClosed
	}
	if st.Pointer.Version != expect {
		return false, nil
	}
	next.Version = expect + 1
	st.Pointer = next
	m.emit(auctionID, st, events.BidAccepted, pub.Accepted)
	if pub.Outbid != nil {
		m.emit(auctionID, st, events.BidOutbid, pub.Outbid)
	}
	return true, nil
}

func (m *Memory) Revert(_ context.Context, auctionID string, failed, restore Pointer, body []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(auctionID)
	if st.Pointer.Version != failed.Version || st.Pointer.BidID != failed.BidID {
		return false, nil
	}
	restore.Version = failed.Version + 1
	st.Pointer = restore
	m.emit(auctionID, st, events.BidAccepted, body)
	return true, nil
}

// Seed installs p as version 1 unless a pointer was already written.
func (m *Memory) Seed(_ context.Context, auctionID string, p Pointer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(auctionID)
	if st.Pointer.Version != 0 {
		return false, nil
	}
	p.Version = 1
	st.Pointer = p
	return true, nil
}

// AdvanceStatus moves the status hint forward; it never moves it back.
// Reaching ENDED publishes auction:ended exactly once.
func (m *Memory) AdvanceStatus(_ context.Context, auctionID string, to models.Status, endedBody []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(auctionID)
	if to.Rank() <= st.Status.Rank() {
		return false, nil
	}
	st.Status = to
	if to == models.StatusEnded {
		m.emit(auctionID, st, events.AuctionEnded, endedBody)
	}
	return true, nil
}

func (m *Memory) Publish(_ context.Context, auctionID, event string, body []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emit(auctionID, m.state(auctionID), event, body), nil
}

// ArmTimers is a no-op; the status sweeper keeps memory mode fresh.
func (m *Memory) ArmTimers(context.Context, string, time.Time, time.Time) error { return nil }
