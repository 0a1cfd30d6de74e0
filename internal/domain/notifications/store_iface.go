package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, accountID, ntype, title, body string) error
	ListNotifications(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, accountID string) (int, error)
	MarkRead(ctx context.Context, accountID, notificationID string) error
	MarkAllRead(ctx context.Context, accountID string) error
	AccountEmail(ctx context.Context, accountID string) (string, string, error)
	EmailOptOut(ctx context.Context, accountID string) (bool, error)
}
