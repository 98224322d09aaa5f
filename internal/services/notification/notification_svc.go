package notification

import (
	"context"
	"encoding/json"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/metrics"
	"liveauction/internal/models"
	"liveauction/internal/workers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const listLimit = 50

type INotificationService interface {
	Record(ctx context.Context, userID string, typ models.NotificationType, payload any)
	OnBidAccepted(ctx context.Context, e models.BidAccepted)
	List(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Sink persists per-user notifications. Recording is fire-and-forget: a
// failure is logged and counted, never returned.
type Sink struct {
	store   repository.NotificationStore
	workers *workers.Pool
	now     func() time.Time
}

var _ INotificationService = (*Sink)(nil)

func NewSink(store repository.NotificationStore, pool *workers.Pool) *Sink {
	return &Sink{store: store, workers: pool, now: time.Now}
}

func (s *Sink) Record(_ context.Context, userID string, typ models.NotificationType, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.dropped(typ, userID, err)
		return
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Payload:   raw,
		CreatedAt: s.now().UTC(),
	}
	insert := func(ctx context.Context) {
		if err := s.store.InsertNotification(ctx, n); err != nil {
			s.dropped(typ, userID, err)
			return
		}
		zap.L().Debug("notification.recorded",
			zap.String("user_id", userID),
			zap.String("type", string(typ)),
		)
	}
	if s.workers == nil {
		insert(context.Background())
		return
	}
	s.workers.Go("notification.record", insert)
}

type newBidPayload struct {
	AuctionID    string `json:"auctionId"`
	AuctionTitle string `json:"auctionTitle"`
	BidderID     string `json:"bidderId"`
	Amount       int64  `json:"amount"`
}

type outbidPayload struct {
	AuctionID    string `json:"auctionId"`
	AuctionTitle string `json:"auctionTitle"`
	YourLastBid  int64  `json:"yourLastBid"`
	NewAmount    int64  `json:"newAmount"`
}

// OnBidAccepted tells the seller about the new bid and the displaced
// leader that they were outbid.
func (s *Sink) OnBidAccepted(ctx context.Context, e models.BidAccepted) {
	s.Record(ctx, e.SellerID, models.NotifyNewBid, newBidPayload{
		AuctionID:    e.AuctionID,
		AuctionTitle: e.AuctionTitle,
		BidderID:     e.Bid.BidderID,
		Amount:       e.Bid.Amount,
	})
	if e.Outbid() {
		s.Record(ctx, e.PreviousBidderID, models.NotifyOutbid, outbidPayload{
			AuctionID:    e.AuctionID,
			AuctionTitle: e.AuctionTitle,
			YourLastBid:  e.PreviousAmount,
			NewAmount:    e.Bid.Amount,
		})
	}
}

func (s *Sink) List(ctx context.Context, userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	return s.store.ListNotifications(ctx, userID, listLimit)
}

func (s *Sink) MarkRead(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return apperr.Validation("notification id and user id are required")
	}
	return s.store.MarkNotificationRead(ctx, id, userID)
}

func (s *Sink) dropped(typ models.NotificationType, userID string, err error) {
	metrics.NotificationsDropped.WithLabelValues(string(typ)).Inc()
	zap.L().Error("notification.dropped",
		zap.String("user_id", userID),
		zap.String("type", string(typ)),
		zap.Error(err),
	)
}
