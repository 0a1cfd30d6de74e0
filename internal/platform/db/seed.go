package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"visapath/internal/auth"
	"visapath/internal/platform/config"
)

// Seed provisions the bootstrap admin account and the subscription plan
// catalog. Safe to run repeatedly.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureAdminAccount(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	return ensurePlans(ctx, pool)
}

func ensureAdminAccount(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM accounts WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO accounts (email, full_name, role, password_hash, is_active)
    VALUES ($1, 'Platform Admin', 'ADMIN', $2, true)
  `, email, hash)
	return err
}

func ensurePlans(ctx context.Context, pool *pgxpool.Pool) error {
	plans := []struct {
		Code        string
		Name        string
		AmountCents int64
		Currency    string
	}{
		{"consult-basic", "Single Consultation", 9900, "usd"},
		{"case-standard", "Standard Case Handling", 49900, "usd"},
		{"case-premium", "Premium Case Handling", 99900, "usd"},
	}
	for _, p := range plans {
		_, err := pool.Exec(ctx, `
      INSERT INTO plans (code, name, amount_cents, currency)
      VALUES ($1, $2, $3, $4)
      ON CONFLICT (code) DO NOTHING
    `, p.Code, p.Name, p.AmountCents, p.Currency)
		if err != nil {
			return err
		}
	}
	return nil
}
