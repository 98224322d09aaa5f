package fulfillment

import (
	"context"
	"errors"
	"testing"

	"liveauction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-3F2A9C1E", InvoiceNumber("3f2a9c1e-7b44-4c1d-9a57-2d1f0c3b8e61"))
	assert.Equal(t, "INV-AB", InvoiceNumber("ab"))
}

type mailbox struct {
	sent []string
	fail bool
}

func (m *mailbox) Send(_ context.Context, userID, _, _ string) error {
	m.sent = append(m.sent, userID)
	if m.fail {
		return errors.New("smtp down")
	}
	return nil
}

func TestCompleteSale_MailsBothParties(t *testing.T) {
	mb := &mailbox{}
	s := New(mb)
	err := s.CompleteSale(context.Background(), models.Sale{
		AuctionID: "a1", AuctionTitle: "Vintage lamp", SellerID: "seller-s", BuyerID: "bidder-x",
		Price: 750, Outcome: models.OutcomeCounterAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bidder-x", "seller-s"}, mb.sent)
}

func TestCompleteSale_Errors(t *testing.T) {
	mb := &mailbox{fail: true}
	s := New(mb)
	err := s.CompleteSale(context.Background(), models.Sale{
		AuctionID: "a1", SellerID: "seller-s", BuyerID: "bidder-x", Outcome: models.OutcomeAccepted,
	})
	assert.Error(t, err)
	assert.Len(t, mb.sent, 2)

	err = s.CompleteSale(context.Background(), models.Sale{Outcome: models.OutcomeRejected})
	assert.Error(t, err)
}
