package highbid

import (
	"context"
	"errors"
	"time"

	"liveauction/internal/models"
)

// ErrAuctionClosed is returned by a register when the swap is refused
// because bidding is over (deadline passed or status hint ENDED/CLOSED).
var ErrAuctionClosed = errors.New("auction_closed")

// Pointer is the cached leader of one auction. Version counts committed
// swaps and is the compare-and-set target; 0 means no bid yet.
type Pointer struct {
	Amount   int64
	BidderID string
	BidID    string
	PlacedAt time.Time
	Version  int64
}

func (p Pointer) Exists() bool { return p.BidderID != "" }

func (p Pointer) HighestBid() *models.HighestBid {
	if !p.Exists() {
		return nil
	}
	return &models.HighestBid{
		BidID:    p.BidID,
		BidderID: p.BidderID,
		Amount:   p.Amount,
		PlacedAt: p.PlacedAt,
	}
}

// State is everything the register holds for an auction, read in one
// atomic operation.
type State struct {
	Pointer Pointer
	Status  models.Status // status hint, empty when never written
	Seq     int64         // last event sequence number published
}

// Publication carries the event bodies published atomically with a
// successful swap.
type Publication struct {
	Accepted []byte
	Outbid   []byte // nil when the leader did not change
}

// Register is the shared, atomically updatable store for highest-bid
// pointers. Implementations must make CompareAndSet linearizable across
// every process that shares the register.
type Register interface {
	Load(ctx context.Context, auctionID string) (State, error)
	// CompareAndSet installs next only if the stored version still equals
	// expect. A false result with a nil error means another bid won.
	CompareAndSet(ctx context.Context, auctionID string, expect int64, next Pointer, deadline time.Time, pub Publication) (bool, error)
	// Revert restores the pointer that failed replaced, provided nothing was
	// committed on top of failed in the meantime.
	Revert(ctx context.Context, auctionID string, failed, restore Pointer, body []byte) (bool, error)
}
