package models

// Outcome tags how a CLOSED auction was settled.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeAccepted        Outcome = "ACCEPTED"
	OutcomeRejected        Outcome = "REJECTED"
	OutcomeCounterAccepted Outcome = "COUNTER_ACCEPTED"
	OutcomeCounterRejected Outcome = "COUNTER_REJECTED"
)

// Sale reports whether the outcome transfers the item.
func (o Outcome) Sale() bool {
	return o == OutcomeAccepted || o == OutcomeCounterAccepted
}

type DecisionAction string

const (
	ActionAccept  DecisionAction = "ACCEPT"
	ActionReject  DecisionAction = "REJECT"
	ActionCounter DecisionAction = "COUNTER"
)

func (a DecisionAction) Valid() bool {
	return a == ActionAccept || a == ActionReject || a == ActionCounter
}

// NegotiationState is the post-auction protocol position.
type NegotiationState string

const (
	NegotiationNone            NegotiationState = ""
	NegotiationUndecided       NegotiationState = "ENDED_UNDECIDED"
	NegotiationAccepted        NegotiationState = "ACCEPTED"
	NegotiationRejected        NegotiationState = "REJECTED"
	NegotiationCounterPending  NegotiationState = "COUNTER_PENDING"
	NegotiationCounterAccepted NegotiationState = "COUNTER_ACCEPTED"
	NegotiationCounterRejected NegotiationState = "COUNTER_REJECTED"
)

// Negotiation derives the protocol state from an auction whose status has
// already been merged, and its pending counter offer, if any.
func Negotiation(a *Auction, pending *CounterOffer) NegotiationState {
	switch a.Status {
	case StatusEnded:
		if pending != nil && pending.Status == CounterPending {
			return NegotiationCounterPending
		}
		return NegotiationUndecided
	case StatusClosed:
		switch a.Outcome {
		case OutcomeAccepted:
			return NegotiationAccepted
		case OutcomeRejected:
			return NegotiationRejected
		case OutcomeCounterAccepted:
			return NegotiationCounterAccepted
		case OutcomeCounterRejected:
			return NegotiationCounterRejected
		}
	}
	return NegotiationNone
}

// Sale is a completed transfer handed to fulfillment.
type Sale struct {
	AuctionID    string  `json:"auctionId"`
	AuctionTitle string  `json:"auctionTitle"`
	SellerID     string  `json:"sellerId"`
	BuyerID      string  `json:"buyerId"`
	Price        int64   `json:"price"`
	Outcome      Outcome `json:"outcome"`
}
