package ws

import (
	"encoding/json"

	"liveauction/internal/apperr"
	"liveauction/internal/events"
	"liveauction/internal/models"
)

// JoinRequest is the body of auction:join.
type JoinRequest struct {
	AuctionID string `json:"auctionId"`
}

type JoinAck struct {
	AuctionID string `json:"auctionId"`
	Seq       int64  `json:"seq"`
}

// BidRequest is the body of bid:place. AuctionID defaults to the joined
// room.
type BidRequest struct {
	AuctionID string `json:"auctionId"`
	Amount    int64  `json:"amount"`
}

type BidAck struct {
	Bid *models.Bid `json:"bid"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

const errorEvent = "error"

func replyFrame(event string, body any) ([]byte, error) {
	env := events.Envelope{Event: event}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		env.Body = raw
	}
	return json.Marshal(env)
}

func errorFrame(err error) []byte {
	msg, _ := replyFrame(errorEvent, ErrorBody{
		Error:   err.Error(),
		Code:    apperr.KindOf(err).String(),
		Details: apperr.DetailsOf(err),
	})
	return msg
}
