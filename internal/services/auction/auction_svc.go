package auction

import (
	"context"
	"errors"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/highbid"
	"liveauction/internal/models"
	"liveauction/internal/workers"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LiveState is the shared register plus the room-facing operations that
// live next to it.
type LiveState interface {
	highbid.Register
	// Seed writes p as the first pointer version when the register has
	// none, so a register that lost its state resumes from the ledger.
	Seed(ctx context.Context, auctionID string, p highbid.Pointer) (bool, error)
	AdvanceStatus(ctx context.Context, auctionID string, to models.Status, endedBody []byte) (bool, error)
	Publish(ctx context.Context, auctionID, event string, body []byte) (int64, error)
	ArmTimers(ctx context.Context, auctionID string, goLiveAt, endsAt time.Time) error
}

// BidObserver is told about every committed bid, off the request path.
type BidObserver interface {
	OnBidAccepted(ctx context.Context, e models.BidAccepted)
}

// Notifier records a user notification. It must not fail the caller.
type Notifier interface {
	Record(ctx context.Context, userID string, typ models.NotificationType, payload any)
}

type Fulfiller interface {
	CompleteSale(ctx context.Context, sale models.Sale) error
}

type IAuctionService interface {
	CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*models.Auction, error)
	GetAuction(ctx context.Context, id string) (*AuctionView, error)
	ListAuctions(ctx context.Context, f ListInput) ([]AuctionView, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]models.Bid, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (*models.Bid, error)
	Decide(ctx context.Context, auctionID, actorID string, action models.DecisionAction, counterPrice *int64) (*NegotiationResult, error)
	RespondToCounter(ctx context.Context, auctionID, actorID string, accept bool) (*NegotiationResult, error)
	// Refresh recomputes the clock status and persists any transition.
	Refresh(ctx context.Context, auctionID string) error
	Snapshot(ctx context.Context, auctionID string) (*Snapshot, error)
}

type CreateAuctionInput struct {
	Title           string    `json:"title"           validate:"required,min=3,max=200"`
	Description     string    `json:"description"     validate:"required,min=10,max=2000"`
	StartingPrice   int64     `json:"startingPrice"   validate:"gt=0"`
	BidIncrement    int64     `json:"bidIncrement"    validate:"gt=0"`
	GoLiveAt        time.Time `json:"goLiveAt"        validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"min=1,max=1440"`
}

type ListInput struct {
	Status   models.Status
	SellerID string
	Limit    int
	Offset   int
}

// AuctionView is an auction with its derived, read-time state.
type AuctionView struct {
	*models.Auction
	HighestBid   *models.HighestBid      `json:"highestBid"`
	TimeLeftMs   int64                   `json:"timeLeftMs"`
	Negotiation  models.NegotiationState `json:"negotiation,omitempty"`
	CounterOffer *models.CounterOffer    `json:"counterOffer,omitempty"`
}

type auctionService struct {
	store    repository.AuctionStore
	live     LiveState
	tracker  *highbid.Tracker
	validate *validator.Validate
	workers  *workers.Pool
	observer BidObserver
	notifier Notifier
	fulfill  Fulfiller
	now      func() time.Time
}

var _ IAuctionService = (*auctionService)(nil)

type Option func(*auctionService)

func WithTrackerOptions(opts ...highbid.Option) Option {
	return func(s *auctionService) { s.tracker = highbid.NewTracker(s.live, opts...) }
}

func WithBidObserver(o BidObserver) Option { return func(s *auctionService) { s.observer = o } }
func WithNotifier(n Notifier) Option       { return func(s *auctionService) { s.notifier = n } }
func WithFulfiller(f Fulfiller) Option     { return func(s *auctionService) { s.fulfill = f } }
func WithClock(now func() time.Time) Option {
	return func(s *auctionService) { s.now = now }
}

func NewAuctionService(store repository.AuctionStore, live LiveState, pool *workers.Pool, opts ...Option) IAuctionService {
	s := &auctionService{
		store:    store,
		live:     live,
		validate: validator.New(),
		workers:  pool,
		now:      time.Now,
	}
	s.tracker = highbid.NewTracker(live)
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *auctionService) CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*models.Auction, error) {
	if sellerID == "" {
		return nil, apperr.Validation("seller id is required")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	now := s.now().UTC()
	if !in.GoLiveAt.After(now) {
		return nil, apperr.Validation("goLiveAt must be in the future").With("field", "goLiveAt")
	}

	a := &models.Auction{
		ID:              uuid.NewString(),
		SellerID:        sellerID,
		Title:           in.Title,
		Description:     in.Description,
		StartingPrice:   in.StartingPrice,
		BidIncrement:    in.BidIncrement,
		GoLiveAt:        in.GoLiveAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          models.StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateAuction(ctx, a); err != nil {
		return nil, err
	}
	if err := s.live.ArmTimers(ctx, a.ID, a.GoLiveAt, a.EndsAt()); err != nil {
		zap.L().Warn("auction.arm_timers", zap.String("auction_id", a.ID), zap.Error(err))
	}
	zap.L().Info("auction.created",
		zap.String("auction_id", a.ID),
		zap.String("seller_id", sellerID),
		zap.Time("go_live_at", a.GoLiveAt),
		zap.Int("duration_minutes", a.DurationMinutes),
	)
	return a, nil
}

func (s *auctionService) GetAuction(ctx context.Context, id string) (*AuctionView, error) {
	a, err := s.store.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	st, err := s.resolve(ctx, a, now)
	if err != nil {
		return nil, err
	}
	v := newView(a, st, now)
	if a.Status == models.StatusEnded {
		co, err := s.store.PendingCounterOffer(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		v.CounterOffer = co
		v.Negotiation = models.Negotiation(a, co)
	}
	return v, nil
}

func (s *auctionService) ListAuctions(ctx context.Context, in ListInput) ([]AuctionView, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, apperr.Validation("unknown status").With("status", in.Status)
	}
	if in.Limit < 0 || in.Offset < 0 {
		return nil, apperr.Validation("limit and offset must not be negative")
	}
	if in.Limit == 0 || in.Limit > 100 {
		in.Limit = 20
	}

	list, err := s.store.ListAuctions(ctx, repository.ListFilter{
		Statuses: persistedCandidates(in.Status),
		SellerID: in.SellerID,
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]AuctionView, 0, len(list))
	for i := range list {
		a := &list[i]
		st, err := s.resolve(ctx, a, now)
		if err != nil {
			return nil, err
		}
		if in.Status != "" && a.Status != in.Status {
			continue
		}
		v := newView(a, st, now)
		if a.Status == models.StatusEnded || a.Status == models.StatusClosed {
			v.Negotiation = models.Negotiation(a, nil)
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *auctionService) ListBids(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	if limit < 0 || limit > 200 {
		return nil, apperr.Validation("limit must be between 0 and 200")
	}
	return s.store.ListBids(ctx, auctionID, limit)
}

// persistedCandidates widens a status filter to every stored status the
// clock could have moved into it. Stored status only lags the clock, so the
// derived status is re-checked after loading.
func persistedCandidates(want models.Status) []models.Status {
	switch want {
	case "":
		return nil
	case models.StatusClosed:
		return []models.Status{models.StatusClosed}
	}
	var out []models.Status
	for _, st := range []models.Status{models.StatusScheduled, models.StatusLive, models.StatusEnded} {
		if st.Rank() <= want.Rank() {
			out = append(out, st)
		}
	}
	return out
}

func newView(a *models.Auction, st highbid.State, now time.Time) *AuctionView {
	return &AuctionView{
		Auction:    a,
		HighestBid: st.Pointer.HighestBid(),
		TimeLeftMs: a.Schedule().TimeLeft(now).Milliseconds(),
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = fe.Tag()
	}
	return apperr.Validation("invalid auction").With("fields", fields)
}

func lowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+('a'-'A')) + s[1:]
}

// async runs fn on the worker pool; without one it runs fn inline.
func (s *auctionService) async(name string, fn func(ctx context.Context)) {
	if s.workers == nil {
		fn(context.Background())
		return
	}
	s.workers.Go(name, fn)
}
