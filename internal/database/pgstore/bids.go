package pgstore

import (
	"context"
	"database/sql"
	"errors"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/models"
)

type pendingBid struct {
	tx *sql.Tx
}

func (p *pendingBid) Commit(_ context.Context) error {
	if err := p.tx.Commit(); err != nil {
		return apperr.Internal("commit bid", err)
	}
	return nil
}

func (p *pendingBid) Rollback() error {
	if err := p.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// BeginBid inserts the ledger row in an open transaction. The caller moves
// the highest-bid pointer before committing, so a row is never visible
// without the pointer having accepted it.
func (s *Store) BeginBid(ctx context.Context, b models.Bid) (repository.PendingBid, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("begin bid", err)
	}

	const q = `
	INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
	     VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, q, b.ID, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("bid already recorded")
		}
		return nil, apperr.Internal("insert bid", err)
	}
	return &pendingBid{tx: tx}, nil
}

func (s *Store) HighestBid(ctx context.Context, auctionID string) (*models.Bid, error) {
	const q = `
	SELECT id, auction_id, bidder_id, amount, created_at
	  FROM bids
	 WHERE auction_id = $1
	 ORDER BY amount DESC, created_at DESC
	 LIMIT 1`

	var b models.Bid
	err := s.db.QueryRowContext(ctx, q, auctionID).
		Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("highest bid", err)
	}
	return &b, nil
}

func (s *Store) ListBids(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
	SELECT id, auction_id, bidder_id, amount, created_at
	  FROM bids
	 WHERE auction_id = $1
	 ORDER BY amount DESC, created_at DESC
	 LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, auctionID, limit)
	if err != nil {
		return nil, apperr.Internal("list bids", err)
	}
	defer rows.Close()

	list := make([]models.Bid, 0, limit)
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, apperr.Internal("scan bid", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list bids", err)
	}
	return list, nil
}
