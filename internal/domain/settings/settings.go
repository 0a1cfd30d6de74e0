package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account preferences live in app_settings under "account:<id>:<feature>"
// keys. The purge pass removes an account's rows by that prefix.
const (
	FeatureEmailNotifications = "email_notifications"
	FeatureLocale             = "locale"
	FeatureTimezone           = "timezone"
)

var ErrNotFound = errors.New("setting not found")

func AccountKey(accountID, feature string) string {
	return "account:" + accountID + ":" + feature
}

func ValidFeature(feature string) bool {
	switch feature {
	case FeatureEmailNotifications, FeatureLocale, FeatureTimezone:
		return true
	}
	return false
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *Service) GetAccount(ctx context.Context, accountID, feature string) (string, error) {
	return s.Get(ctx, AccountKey(accountID, feature))
}

func (s *Service) SetAccount(ctx context.Context, accountID, feature, value string) error {
	return s.Set(ctx, AccountKey(accountID, feature), value)
}

func (s *Service) DeleteAccount(ctx context.Context, accountID, feature string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM app_settings WHERE key = $1`, AccountKey(accountID, feature))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAccount returns the account's preferences keyed by feature name.
func (s *Service) ListAccount(ctx context.Context, accountID string) (map[string]string, error) {
	prefix := "account:" + accountID + ":"
	rows, err := s.DB.Query(ctx, `
		SELECT key, value FROM app_settings WHERE key LIKE $1 || '%'
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(key, prefix)] = value
	}
	return out, rows.Err()
}
