package highbid

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/metrics"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 5
	defaultStoreRetries = 2
)

// Placement is a bid that has passed the pre-contention checks.
type Placement struct {
	AuctionID     string
	BidID         string
	BidderID      string
	Amount        int64
	PlacedAt      time.Time
	StartingPrice int64
	Increment     int64
	Deadline      time.Time
}

type Result struct {
	Previous Pointer
	Current  Pointer
	Attempts int
}

// Publisher builds the frames for a swap from prev to next. It is called
// once per attempt because prev changes between attempts.
type Publisher func(prev, next Pointer) (Publication, error)

// Tracker runs the optimistic compare-and-set loop against a Register.
type Tracker struct {
	reg          Register
	maxAttempts  int
	storeRetries int
	backoff      time.Duration
}

type Option func(*Tracker)

func WithMaxAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the upper bound of the jittered pause between
// attempts; 0 disables pausing.
func WithRetryBackoff(d time.Duration) Option {
	return func(t *Tracker) { t.backoff = d }
}

func NewTracker(reg Register, opts ...Option) *Tracker {
	t := &Tracker{
		reg:          reg,
		maxAttempts:  defaultMaxAttempts,
		storeRetries: defaultStoreRetries,
		backoff:      2 * time.Millisecond,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// MinimumBid is the smallest amount that may follow p.
func MinimumBid(p Pointer, startingPrice, increment int64) int64 {
	current := startingPrice
	if p.Exists() {
		current = p.Amount
	}
	return current + increment
}

// Place contends for the auction's pointer. Business-rule failures are
// returned immediately; version conflicts are retried up to maxAttempts and
// register failures up to storeRetries.
func (t *Tracker) Place(ctx context.Context, p Placement, publish Publisher) (*Result, error) {
	storeFailures := 0
	storeFailed := func(op string, err error) error {
		storeFailures++
		zap.L().Warn("bid.register_error",
			zap.String("op", op),
			zap.String("auction_id", p.AuctionID),
			zap.Int("failures", storeFailures),
			zap.Error(err),
		)
		if storeFailures > t.storeRetries {
			return apperr.Internal(op, err)
		}
		return nil
	}

	for attempt := 1; attempt <= t.maxAttempts; {
		st, err := t.reg.Load(ctx, p.AuctionID)
		if err != nil {
			if ferr := storeFailed("load highest bid", err); ferr != nil {
				return nil, ferr
			}
			if err := t.pause(ctx, storeFailures); err != nil {
				return nil, apperr.Internal("load highest bid", err)
			}
			continue
		}

		minBid := MinimumBid(st.Pointer, p.StartingPrice, p.Increment)
		if p.Amount < minBid {
			return nil, apperr.Validation("bid below minimum").With("minBid", minBid)
		}

		next := Pointer{
			Amount:   p.Amount,
			BidderID: p.BidderID,
			BidID:    p.BidID,
			PlacedAt: p.PlacedAt,
			Version:  st.Pointer.Version + 1,
		}
		pub, err := publish(st.Pointer, next)
		if err != nil {
			return nil, apperr.Internal("encode bid events", err)
		}

		ok, err := t.reg.CompareAndSet(ctx, p.AuctionID, st.Pointer.Version, next, p.Deadline, pub)
		switch {
		case errors.Is(err, ErrAuctionClosed):
			return nil, apperr.Conflict("auction is not live")
		case err != nil:
			if ferr := storeFailed("swap highest bid", err); ferr != nil {
				return nil, ferr
			}
			if err := t.pause(ctx, storeFailures); err != nil {
				return nil, apperr.Internal("swap highest bid", err)
			}
			continue
		case ok:
			metrics.BidAttempts.Observe(float64(attempt))
			return &Result{Previous: st.Pointer, Current: next, Attempts: attempt}, nil
		}

		metrics.BidConflicts.Inc()
		zap.L().Debug("bid.cas_conflict",
			zap.String("auction_id", p.AuctionID),
			zap.Int64("expected_version", st.Pointer.Version),
			zap.Int("attempt", attempt),
		)
		if err := t.pause(ctx, attempt); err != nil {
			return nil, apperr.Conflict("too many concurrent bids, retry")
		}
		attempt++
	}

	metrics.BidAttempts.Observe(float64(t.maxAttempts))
	return nil, apperr.Conflict("too many concurrent bids, retry")
}

func (t *Tracker) pause(ctx context.Context, n int) error {
	if t.backoff <= 0 {
		return ctx.Err()
	}
	d := time.Duration(rand.Int64N(int64(t.backoff)*int64(n) + 1))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
