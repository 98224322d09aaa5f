package events

import (
	"encoding/json"
	"strconv"

	"liveauction/internal/models"
)

// Real-time event names.
const (
	AuctionJoin     = "auction:join"
	AuctionState    = "auction:state"
	AuctionEnded    = "auction:ended"
	BidPlace        = "bid:place"
	BidAccepted     = "bid:accepted"
	BidOutbid       = "bid:outbid"
	SellerDecision  = "seller:decision"
	CounterResponse = "counter:response"
)

// Envelope wraps every room frame. Seq is the per-auction position assigned
// by the register when the underlying transition committed.
type Envelope struct {
	Event string          `json:"event"`
	Seq   int64           `json:"seq,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// Encode renders an envelope. The byte layout matches what the Redis
// functions build with string concatenation, so both registers emit
// identical frames.
func Encode(event string, seq int64, body []byte) []byte {
	if len(body) == 0 {
		body = []byte("null")
	}
	out := make([]byte, 0, len(event)+len(body)+40)
	out = append(out, `{"event":`...)
	out = strconv.AppendQuote(out, event)
	out = append(out, `,"seq":`...)
	out = strconv.AppendInt(out, seq, 10)
	out = append(out, `,"body":`...)
	out = append(out, body...)
	out = append(out, '}')
	return out
}

func Decode(msg []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(msg, &env)
	return env, err
}

type BidAcceptedBody struct {
	AuctionID  string             `json:"auctionId"`
	HighestBid *models.HighestBid `json:"highestBid"`
}

type OutbidBody struct {
	AuctionID   string `json:"auctionId"`
	BidderID    string `json:"bidderId"`
	YourLastBid int64  `json:"yourLastBid"`
}

type AuctionEndedBody struct {
	Auction *models.Auction `json:"auction"`
}

type SellerDecisionBody struct {
	AuctionID    string `json:"auctionId"`
	Status       string `json:"status"`
	CounterPrice *int64 `json:"counterPrice,omitempty"`
}

type CounterResponseBody struct {
	AuctionID string `json:"auctionId"`
	Accepted  bool   `json:"accepted"`
}

type AuctionStateBody struct {
	Auction    *models.Auction    `json:"auction"`
	HighestBid *models.HighestBid `json:"highestBid"`
	TimeLeftMs int64              `json:"timeLeftMs"`
}
