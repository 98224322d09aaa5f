package pgstore

import (
	"context"
	"database/sql"
	"errors"

	"liveauction/internal/apperr"
	"liveauction/internal/models"
)

const counterColumns = `id, auction_id, seller_id, bidder_id, price, status, created_at, updated_at`

func scanCounterOffer(s rowScanner) (*models.CounterOffer, error) {
	var co models.CounterOffer
	if err := s.Scan(&co.ID, &co.AuctionID, &co.SellerID, &co.BidderID, &co.Price,
		&co.Status, &co.CreatedAt, &co.UpdatedAt); err != nil {
		return nil, err
	}
	return &co, nil
}

// CreateCounterOffer stores a PENDING offer. The auction row is locked so a
// concurrent decision cannot close it in between, and the partial unique
// index rejects a second pending offer.
func (s *Store) CreateCounterOffer(ctx context.Context, co *models.CounterOffer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin counter offer", err)
	}
	defer tx.Rollback()

	st, err := lockAuction(ctx, tx, co.AuctionID)
	if err != nil {
		return err
	}
	if st == models.StatusClosed {
		return apperr.Conflict("auction already decided")
	}

	const q = `
	INSERT INTO counter_offers (id, auction_id, seller_id, bidder_id, price, status, created_at, updated_at)
	     VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.ExecContext(ctx, q, co.ID, co.AuctionID, co.SellerID, co.BidderID, co.Price,
		string(co.Status), co.CreatedAt, co.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("counter offer already pending")
		}
		return apperr.Internal("insert counter offer", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit counter offer", err)
	}
	return nil
}

func (s *Store) PendingCounterOffer(ctx context.Context, auctionID string) (*models.CounterOffer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+counterColumns+` FROM counter_offers WHERE auction_id = $1 AND status = 'PENDING'`, auctionID)
	co, err := scanCounterOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Internal("get counter offer", err)
	}
	return co, nil
}

// ResolveCounterOffer locks the auction before the offer, in the same order
// as CreateCounterOffer and CloseAuction, and refuses an auction another
// settlement already closed.
func (s *Store) ResolveCounterOffer(ctx context.Context, auctionID, actorID string, accept bool) (*models.CounterOffer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("begin counter response", err)
	}
	defer tx.Rollback()

	st, err := lockAuction(ctx, tx, auctionID)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
	SELECT `+counterColumns+`
	  FROM counter_offers
	 WHERE auction_id = $1
	 ORDER BY created_at DESC
	 LIMIT 1
	   FOR UPDATE`, auctionID)
	co, err := scanCounterOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("counter offer not found")
		}
		return nil, apperr.Internal("lock counter offer", err)
	}
	if co.BidderID != actorID {
		return nil, apperr.Forbidden("only the offered bidder can respond")
	}
	if co.Status != models.CounterPending {
		return nil, apperr.Conflict("no pending counter offer")
	}
	if st == models.StatusClosed {
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

	if _, err := tx.ExecContext(ctx,
		`UPDATE counter_offers SET status = $2, updated_at = now() WHERE id = $1`,
		co.ID, string(co.Status)); err != nil {
		return nil, apperr.Internal("update counter offer", err)
	}
	if err := closeLocked(ctx, tx, auctionID, outcome, final); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Internal("commit counter response", err)
	}
	return co, nil
}
