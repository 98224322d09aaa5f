package memstore

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/models"
)

// Store keeps everything in process memory. It backs the single-node
// development mode and the service tests, with the same conditional
// semantics as the Postgres store.
type Store struct {
	mu            sync.RWMutex
	auctions      map[string]*models.Auction
	bids          map[string][]models.Bid
	bidIDs        map[string]struct{}
	counters      map[string][]*models.CounterOffer
	notifications map[string][]*models.Notification
	now           func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		auctions:      make(map[string]*models.Auction),
		bids:          make(map[string][]models.Bid),
		bidIDs:        make(map[string]struct{}),
		counters:      make(map[string][]*models.CounterOffer),
		notifications: make(map[string][]*models.Notification),
		now:           time.Now,
	}
}

func (s *Store) CreateAuction(_ context.Context, a *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return apperr.Conflict("auction already exists")
	}
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *Store) GetAuction(_ context.Context, id string) (*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, apperr.NotFound("auction not found")
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAuctions(_ context.Context, f repository.ListFilter) ([]models.Auction, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	s.mu.RLock()
	list := make([]models.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if f.SellerID != "" && a.SellerID != f.SellerID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		list = append(list, *a)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].GoLiveAt.Equal(list[j].GoLiveAt) {
			return list[i].GoLiveAt.After(list[j].GoLiveAt)
		}
		return list[i].ID < list[j].ID
	})
	if f.Offset >= len(list) {
		return []models.Auction{}, nil
	}
	list = list[f.Offset:]
	if len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (s *Store) AdvanceStatus(_ context.Context, id string, to models.Status) (bool, error) {
	if to == models.StatusClosed || !to.Valid() {
		return false, apperr.Validation("status cannot be advanced to " + string(to))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok || a.Status.Rank() >= to.Rank() {
		return false, nil
	}
	a.Status = to
	a.UpdatedAt = s.now()
	return true, nil
}

var errTxDone = errors.New("transaction already finished")

type pendingBid struct {
	s    *Store
	bid  models.Bid
	done bool
}

func (p *pendingBid) Commit(_ context.Context) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.done {
		return apperr.Internal("commit bid", errTxDone)
	}
	p.done = true
	p.s.bids[p.bid.AuctionID] = append(p.s.bids[p.bid.AuctionID], p.bid)
	return nil
}

func (p *pendingBid) Rollback() error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if !p.done {
		p.done = true
		delete(p.s.bidIDs, p.bid.ID)
	}
	return nil
}

func (s *Store) BeginBid(_ context.Context, b models.Bid) (repository.PendingBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[b.AuctionID]; !ok {
		return nil, apperr.NotFound("auction not found")
	}
	if _, dup := s.bidIDs[b.ID]; dup {
		return nil, apperr.Conflict("bid already recorded")
	}
	s.bidIDs[b.ID] = struct{}{}
	return &pendingBid{s: s, bid: b}, nil
}

func (s *Store) ListBids(_ context.Context, auctionID string, limit int) ([]models.Bid, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	list := slices.Clone(s.bids[auctionID])
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Amount != list[j].Amount {
			return list[i].Amount > list[j].Amount
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	if list == nil {
		list = []models.Bid{}
	}
	return list, nil
}

func (s *Store) HighestBid(ctx context.Context, auctionID string) (*models.Bid, error) {
	list, err := s.ListBids(ctx, auctionID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) pendingLocked(auctionID string) *models.CounterOffer {
	for _, co := range s.counters[auctionID] {
		if co.Status == models.CounterPending {
			return co
		}
	}
	return nil
}

func (s *Store) CloseAuction(_ context.Context, id string, outcome models.Outcome, finalPrice *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return apperr.NotFound("auction not found")
	}
	if a.Status == models.StatusClosed || s.pendingLocked(id) != nil {
		return apperr.Conflict("auction already decided")
	}
	s.closeLocked(a, outcome, finalPrice)
	return nil
}

func (s *Store) closeLocked(a *models.Auction, outcome models.Outcome, finalPrice *int64) {
	a.Status = models.StatusClosed
	a.Outcome = outcome
	a.FinalPrice = nil
	if finalPrice != nil {
		v := *finalPrice
		a.FinalPrice = &v
	}
	a.UpdatedAt = s.now()
}

func (s *Store) CreateCounterOffer(_ context.Context, co *models.CounterOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[co.AuctionID]
	if !ok {
		return apperr.NotFound("auction not found")
	}
	if a.Status == models.StatusClosed {
		return apperr.Conflict("auction already decided")
	}
	if s.pendingLocked(co.AuctionID) != nil {
		return apperr.Conflict("counter offer already pending")
	}
	cp := *co
	s.counters[co.AuctionID] = append(s.counters[co.AuctionID], &cp)
	return nil
}

func (s *Store) PendingCounterOffer(_ context.Context, auctionID string) (*models.CounterOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if co := s.pendingLocked(auctionID); co != nil {
		cp := *co
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ResolveCounterOffer(_ context.Context, auctionID, actorID string, accept bool) (*models.CounterOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offers := s.counters[auctionID]
	if len(offers) == 0 {
		return nil, apperr.NotFound("counter offer not found")
	}
	co := offers[len(offers)-1]
	if co.BidderID != actorID {
		return nil, apperr.Forbidden("only the offered bidder can respond")
	}
	if co.Status != models.CounterPending {
		return nil, apperr.Conflict("no pending counter offer")
	}
	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, apperr.NotFound("auction not found")
	}
	if a.Status == models.StatusClosed {
		return nil, apperr.Conflict("auction already decided")
	}

	co.Status = models.CounterRejected
	outcome := models.OutcomeCounterRejected
	var final *int64
	if accept {
		co.Status = models.CounterAccepted
		outcome = models.OutcomeCounterAccepted
		final = &co.Price
	}
	co.UpdatedAt = s.now()
	s.closeLocked(a, outcome, final)
	cp := *co
	return &cp, nil
}

func (s *Store) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.UserID] = append(s.notifications[n.UserID], &cp)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.notifications[userID]
	list := make([]models.Notification, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(list) < limit; i-- {
		list = append(list, *all[i])
	}
	return list, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}
