package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@visapath.example"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from}
}

// Create writes the in-app notification and mirrors it by email unless
// the account opted out. Email failures never fail the caller.
func (s *Service) Create(ctx context.Context, accountID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, accountID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}
	optOut, err := s.store.EmailOptOut(ctx, accountID)
	if err != nil {
		slog.Warn("notification email preference lookup failed", "accountId", accountID, "err", err)
		return nil
	}
	if optOut {
		return nil
	}

	email, _, err := s.store.AccountEmail(ctx, accountID)
	if err != nil {
		slog.Warn("notification email lookup failed", "accountId", accountID, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "accountId", accountID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListNotifications(ctx, accountID, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, accountID string) (int, error) {
	return s.store.CountUnread(ctx, accountID)
}

func (s *Service) MarkRead(ctx context.Context, accountID, notificationID string) error {
	return s.store.MarkRead(ctx, accountID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, accountID string) error {
	return s.store.MarkAllRead(ctx, accountID)
}
