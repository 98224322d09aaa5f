package models

import (
	"encoding/json"
	"time"
)

type Auction struct {
	ID              string    `json:"id"`
	SellerID        string    `json:"sellerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartingPrice   int64     `json:"startingPrice"`
	BidIncrement    int64     `json:"bidIncrement"`
	GoLiveAt        time.Time `json:"goLiveAt" example:"2025-07-27T16:05:05Z"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          Status    `json:"status" example:"LIVE"`
	Outcome         Outcome   `json:"outcome,omitempty"`
	FinalPrice      *int64    `json:"finalPrice,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// EndsAt is the instant the auction stops accepting bids.
func (a *Auction) EndsAt() time.Time {
	return a.Schedule().EndsAt()
}

// Bid is an accepted ledger row. Rows are never updated or deleted.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type CounterOfferStatus string

const (
	CounterPending  CounterOfferStatus = "PENDING"
	CounterAccepted CounterOfferStatus = "ACCEPTED"
	CounterRejected CounterOfferStatus = "REJECTED"
)

type CounterOffer struct {
	ID        string             `json:"id"`
	AuctionID string             `json:"auctionId"`
	SellerID  string             `json:"sellerId"`
	BidderID  string             `json:"bidderId"`
	Price     int64              `json:"price"`
	Status    CounterOfferStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type NotificationType string

const (
	NotifyNewBid       NotificationType = "NEW_BID"
	NotifyOutbid       NotificationType = "OUTBID"
	NotifyAccepted     NotificationType = "ACCEPTED"
	NotifyRejected     NotificationType = "REJECTED"
	NotifyCounterOffer NotificationType = "COUNTER_OFFER"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// HighestBid is the public view of the current leader of an auction.
type HighestBid struct {
	BidID    string    `json:"id,omitempty"`
	BidderID string    `json:"bidderId"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"createdAt"`
}

// BidAccepted is emitted once per committed bid.
type BidAccepted struct {
	AuctionID        string `json:"auctionId"`
	AuctionTitle     string `json:"auctionTitle"`
	SellerID         string `json:"sellerId"`
	Bid              Bid    `json:"bid"`
	PreviousBidderID string `json:"previousBidderId,omitempty"`
	PreviousAmount   int64  `json:"previousAmount"`
}

// Outbid reports whether the bid displaced a different leader.
func (e BidAccepted) Outbid() bool {
	return e.PreviousBidderID != "" && e.PreviousBidderID != e.Bid.BidderID
}
