package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"liveauction/internal/models"

	"go.uber.org/zap"
)

// Mailer delivers a message to a user. Delivery guarantees are the
// mailer's business; CompleteSale only reports the send error.
type Mailer interface {
	Send(ctx context.Context, userID, subject, body string) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, userID, subject, body string) error {
	zap.L().Info("mail.sent",
		zap.String("to", userID),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

type Invoice struct {
	Number       string    `json:"number"`
	AuctionID    string    `json:"auctionId"`
	AuctionTitle string    `json:"auctionTitle"`
	SellerID     string    `json:"sellerId"`
	BuyerID      string    `json:"buyerId"`
	Price        int64     `json:"price"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// InvoiceNumber is INV- followed by the first eight characters of the
// auction id, upper-cased.
func InvoiceNumber(auctionID string) string {
	prefix := auctionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "INV-" + strings.ToUpper(prefix)
}

type Service struct {
	mailer Mailer
	now    func() time.Time
}

func New(m Mailer) *Service {
	if m == nil {
		m = LogMailer{}
	}
	return &Service{mailer: m, now: time.Now}
}

func (s *Service) Invoice(sale models.Sale) Invoice {
	return Invoice{
		Number:       InvoiceNumber(sale.AuctionID),
		AuctionID:    sale.AuctionID,
		AuctionTitle: sale.AuctionTitle,
		SellerID:     sale.SellerID,
		BuyerID:      sale.BuyerID,
		Price:        sale.Price,
		IssuedAt:     s.now().UTC(),
	}
}

// CompleteSale issues the invoice and emails both parties. Both emails are
// attempted even if the first one fails.
func (s *Service) CompleteSale(ctx context.Context, sale models.Sale) error {
	if !sale.Outcome.Sale() {
		return fmt.Errorf("outcome %q is not a sale", sale.Outcome)
	}
	inv := s.Invoice(sale)

	buyer := s.mailer.Send(ctx, sale.BuyerID,
		fmt.Sprintf("You won %q", sale.AuctionTitle),
		fmt.Sprintf("Invoice %s: %d for %q.", inv.Number, inv.Price, inv.AuctionTitle))
	seller := s.mailer.Send(ctx, sale.SellerID,
		fmt.Sprintf("%q is sold", sale.AuctionTitle),
		fmt.Sprintf("Invoice %s: %d paid by %s.", inv.Number, inv.Price, sale.BuyerID))

	zap.L().Info("sale.completed",
		zap.String("auction_id", sale.AuctionID),
		zap.String("invoice", inv.Number),
		zap.String("outcome", string(sale.Outcome)),
		zap.Int64("price", sale.Price),
	)
	return errors.Join(buyer, seller)
}
