package repository

import (
	"context"

	"liveauction/internal/models"
)

type ListFilter struct {
	Statuses []models.Status // empty means all
	SellerID string
	Limit    int
	Offset   int
}

// PendingBid is a ledger row inserted inside an open transaction. It is not
// visible to readers until Commit.
type PendingBid interface {
	Commit(ctx context.Context) error
	Rollback() error
}

// AuctionStore is the transactional store for auctions, the bid ledger and
// counter offers. Conditional methods report lost races as apperr
// Conflict errors.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a *models.Auction) error
	GetAuction(ctx context.Context, id string) (*models.Auction, error)
	ListAuctions(ctx context.Context, f ListFilter) ([]models.Auction, error)
	// AdvanceStatus persists to only if it is later than the stored status.
	AdvanceStatus(ctx context.Context, id string, to models.Status) (bool, error)

	BeginBid(ctx context.Context, b models.Bid) (PendingBid, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]models.Bid, error)
	// HighestBid returns the leading committed bid, or nil when there is none.
	HighestBid(ctx context.Context, auctionID string) (*models.Bid, error)

	// CloseAuction settles an ENDED auction with no pending counter offer.
	CloseAuction(ctx context.Context, id string, outcome models.Outcome, finalPrice *int64) error
	CreateCounterOffer(ctx context.Context, co *models.CounterOffer) error
	PendingCounterOffer(ctx context.Context, auctionID string) (*models.CounterOffer, error)
	// ResolveCounterOffer settles the latest offer of an auction and closes
	// the auction in the same transaction.
	ResolveCounterOffer(ctx context.Context, auctionID, actorID string, accept bool) (*models.CounterOffer, error)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}

type Store interface {
	AuctionStore
	NotificationStore
}
