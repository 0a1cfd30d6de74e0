package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `
	id, email, full_name, role, COALESCE(phone, ''), COALESCE(country_of_origin, ''),
	is_active, COALESCE(identity_uid, ''), password_hash, last_login_at,
	deletion_scheduled_for, COALESCE(deletion_reason, ''), created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Email, &a.FullName, &a.Role, &a.Phone, &a.CountryOfOrigin,
		&a.IsActive, &a.IdentityUID, &a.PasswordHash, &a.LastLoginAt,
		&a.DeletionScheduledFor, &a.DeletionReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, in RegisterInput, passwordHash string) (Account, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO accounts (email, full_name, role, phone, country_of_origin, password_hash, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, true)
		RETURNING `+accountColumns,
		in.Email, in.FullName, in.Role, in.Phone, in.CountryOfOrigin, passwordHash)

	account, err := scanAccount(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Account{}, ErrEmailTaken
	}
	return account, err
}

func (s *Store) FindByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(s.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(s.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email))
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `UPDATE accounts SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

func (s *Store) UpdateProfile(ctx context.Context, id, fullName, phone, country string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE accounts
		SET full_name = $1, phone = NULLIF($2, ''), country_of_origin = NULLIF($3, ''), updated_at = now()
		WHERE id = $4
	`, fullName, phone, country, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE accounts SET password_hash = $1, updated_at = now() WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetIdentityUID(ctx context.Context, id, uid string) error {
	_, err := s.DB.Exec(ctx, `UPDATE accounts SET identity_uid = $1 WHERE id = $2`, uid, id)
	return err
}

// ScheduleDeletion deactivates the account and stamps the purge date. It
// refuses accounts that already carry a schedule.
func (s *Store) ScheduleDeletion(ctx context.Context, id string, at time.Time, reason string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE accounts
		SET is_active = false, deletion_scheduled_for = $1, deletion_reason = $2, updated_at = now()
		WHERE id = $3 AND deletion_scheduled_for IS NULL
	`, at, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		exists, existsErr := s.accountExists(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return ErrNotFound
		}
		return ErrDeletionAlreadyScheduled
	}
	return nil
}

func (s *Store) CancelDeletion(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE accounts
		SET is_active = true, deletion_scheduled_for = NULL, deletion_reason = NULL, updated_at = now()
		WHERE id = $1 AND deletion_scheduled_for IS NOT NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		exists, existsErr := s.accountExists(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNoScheduledDeletion
	}
	return nil
}

func (s *Store) List(ctx context.Context, role string, limit, offset int) ([]Account, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, role, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, role string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(1) FROM accounts WHERE ($1 = '' OR role = $1)
	`, role).Scan(&total)
	return total, err
}

func (s *Store) accountExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
