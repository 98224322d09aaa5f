package pgstore

import (
	"context"

	"liveauction/internal/apperr"
	"liveauction/internal/models"
)

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	const q = `
	INSERT INTO notifications (id, user_id, type, payload, read, created_at)
	     VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, q, n.ID, n.UserID, string(n.Type), []byte(n.Payload), n.Read, n.CreatedAt); err != nil {
		return apperr.Internal("insert notification", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
	SELECT id, user_id, type, payload, read, created_at
	  FROM notifications
	 WHERE user_id = $1
	 ORDER BY created_at DESC
	 LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, apperr.Internal("list notifications", err)
	}
	defer rows.Close()

	list := make([]models.Notification, 0, limit)
	for rows.Next() {
		var (
			n       models.Notification
			payload []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, apperr.Internal("scan notification", err)
		}
		n.Payload = payload
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list notifications", err)
	}
	return list, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Internal("mark notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("mark notification read", err)
	}
	if n == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}
