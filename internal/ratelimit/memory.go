package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneAt is the key count above which fully refilled limiters are dropped.
const pruneAt = 10_000

// Memory is a per-process token bucket limiter for STATE_DRIVER=memory.
type Memory struct {
	mu    sync.Mutex
	keys  map[string]*rate.Limiter
	every rate.Limit
	burst int
	now   func() time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(events int, per time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		keys:  make(map[string]*rate.Limiter),
		every: rate.Every(per / time.Duration(events)),
		burst: events,
		now:   time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	lim, ok := m.keys[key]
	if !ok {
		if len(m.keys) >= pruneAt {
			m.pruneLocked(now)
		}
		lim = rate.NewLimiter(m.every, m.burst)
		m.keys[key] = lim
	}
	m.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (m *Memory) pruneLocked(now time.Time) {
	for k, lim := range m.keys {
		if lim.TokensAt(now) >= float64(m.burst) {
			delete(m.keys, k)
		}
	}
}
