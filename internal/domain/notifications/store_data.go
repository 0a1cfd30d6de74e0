package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateNotification(ctx context.Context, accountID, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO notifications (account_id, type, title, body)
		VALUES ($1, $2, $3, $4)
	`, accountID, ntype, title, body)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, account_id, type, title, body, read_at, created_at
		FROM notifications
		WHERE account_id = $1 AND ($2 = false OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, accountID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, accountID string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(1) FROM notifications WHERE account_id = $1 AND read_at IS NULL
	`, accountID).Scan(&total)
	return total, err
}

func (s *Store) MarkRead(ctx context.Context, accountID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE account_id = $1 AND id = $2 AND read_at IS NULL
	`, accountID, notificationID)
	return err
}

func (s *Store) MarkAllRead(ctx context.Context, accountID string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE account_id = $1 AND read_at IS NULL
	`, accountID)
	return err
}

func (s *Store) AccountEmail(ctx context.Context, accountID string) (string, string, error) {
	var email, fullName string
	err := s.DB.QueryRow(ctx, `
		SELECT email, full_name FROM accounts WHERE id = $1
	`, accountID).Scan(&email, &fullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	return email, fullName, err
}

// EmailOptOut reads the per-account preference from app_settings. Missing
// rows mean email stays on.
func (s *Store) EmailOptOut(ctx context.Context, accountID string) (bool, error) {
	var value string
	err := s.DB.QueryRow(ctx, `
		SELECT value FROM app_settings WHERE key = 'account:' || $1 || ':email_notifications'
	`, accountID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "off", nil
}
