package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"liveauction/internal/apperr"
	"liveauction/internal/database/repository"
	"liveauction/internal/models"
)

const auctionColumns = `id, seller_id, title, description, starting_price, bid_increment,
       go_live_at, duration_minutes, status, outcome, final_price, created_at, updated_at`

func scanAuction(s rowScanner) (*models.Auction, error) {
	var (
		a     models.Auction
		final sql.NullInt64
	)
	err := s.Scan(&a.ID, &a.SellerID, &a.Title, &a.Description, &a.StartingPrice, &a.BidIncrement,
		&a.GoLiveAt, &a.DurationMinutes, &a.Status, &a.Outcome, &final, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.FinalPrice = int64Ptr(final)
	a.GoLiveAt = a.GoLiveAt.UTC()
	return &a, nil
}

func (s *Store) CreateAuction(ctx context.Context, a *models.Auction) error {
	const q = `
	INSERT INTO auctions (id, seller_id, title, description, starting_price, bid_increment,
	                      go_live_at, duration_minutes, status, created_at, updated_at)
	     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.SellerID, a.Title, a.Description, a.StartingPrice, a.BidIncrement,
		a.GoLiveAt, a.DurationMinutes, string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("auction already exists")
		}
		return apperr.Internal("create auction", err)
	}
	return nil
}

func (s *Store) GetAuction(ctx context.Context, id string) (*models.Auction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("auction not found")
		}
		return nil, apperr.Internal("get auction", err)
	}
	return a, nil
}

func (s *Store) ListAuctions(ctx context.Context, f repository.ListFilter) ([]models.Auction, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	var (
		where []string
		args  []any
	)
	if f.SellerID != "" {
		args = append(args, f.SellerID)
		where = append(where, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			args = append(args, string(st))
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "status IN ("+strings.Join(ph, ", ")+")")
	}

	q := `SELECT ` + auctionColumns + ` FROM auctions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY go_live_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Internal("list auctions", err)
	}
	defer rows.Close()

	list := make([]models.Auction, 0, f.Limit)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, apperr.Internal("scan auction", err)
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list auctions", err)
	}
	return list, nil
}

// AdvanceStatus only moves status forward. CLOSED is reserved for the
// negotiation paths, which set it together with the outcome.
func (s *Store) AdvanceStatus(ctx context.Context, id string, to models.Status) (bool, error) {
	if to == models.StatusClosed || !to.Valid() {
		return false, apperr.Validation("status cannot be advanced to " + string(to))
	}
	const q = `
	UPDATE auctions
	   SET status = $2, updated_at = now()
	 WHERE id = $1
	   AND (CASE status
	            WHEN 'SCHEDULED' THEN 1
	            WHEN 'LIVE'      THEN 2
	            WHEN 'ENDED'     THEN 3
	            WHEN 'CLOSED'    THEN 4
	            ELSE 0
	        END) < $3`

	res, err := s.db.ExecContext(ctx, q, id, string(to), to.Rank())
	if err != nil {
		return false, apperr.Internal("advance status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Internal("advance status", err)
	}
	return n == 1, nil
}

// lockAuction takes the row lock every settlement path goes through, so a
// close and a counter offer on the same auction run one after the other.
func lockAuction(ctx context.Context, tx *sql.Tx, id string) (models.Status, error) {
	var st models.Status
	err := tx.QueryRowContext(ctx, `SELECT status FROM auctions WHERE id = $1 FOR UPDATE`, id).Scan(&st)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("auction not found")
		}
		return "", apperr.Internal("lock auction", err)
	}
	return st, nil
}

func closeLocked(ctx context.Context, tx *sql.Tx, id string, outcome models.Outcome, finalPrice *int64) error {
	const q = `
	UPDATE auctions
	   SET status = 'CLOSED', outcome = $2, final_price = $3, updated_at = now()
	 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, q, id, string(outcome), nullInt64(finalPrice)); err != nil {
		return apperr.Internal("close auction", err)
	}
	return nil
}

func (s *Store) CloseAuction(ctx context.Context, id string, outcome models.Outcome, finalPrice *int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin close auction", err)
	}
	defer tx.Rollback()

	st, err := lockAuction(ctx, tx, id)
	if err != nil {
		return err
	}
	if st == models.StatusClosed {
		return apperr.Conflict("auction already decided")
	}

	var pending bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM counter_offers WHERE auction_id = $1 AND status = 'PENDING')`, id).
		Scan(&pending)
	if err != nil {
		return apperr.Internal("check counter offer", err)
	}
	if pending {
		return apperr.Conflict("counter offer pending")
	}

	if err := closeLocked(ctx, tx, id, outcome, finalPrice); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit close auction", err)
	}
	return nil
}
