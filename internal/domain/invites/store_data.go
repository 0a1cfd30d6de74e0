package invites

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const inviteColumns = `
	i.id, i.code, i.role, i.max_uses,
	(SELECT COUNT(1) FROM invite_usages u WHERE u.invite_id = i.id),
	i.expires_at, i.revoked_at, COALESCE(i.created_by::text, ''), i.created_at`

func scanInvite(row pgx.Row) (Invite, error) {
	var inv Invite
	err := row.Scan(&inv.ID, &inv.Code, &inv.Role, &inv.MaxUses, &inv.UseCount, &inv.ExpiresAt, &inv.RevokedAt, &inv.CreatedBy, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrNotFound
	}
	if err != nil {
		return Invite{}, err
	}
	return inv, nil
}

func (s *Store) CreateInvite(ctx context.Context, code, role, createdBy string, maxUses int, expiresAt *time.Time) (Invite, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
		INSERT INTO invites (code, role, max_uses, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, code, role, maxUses, expiresAt, createdBy).Scan(&id)
	if err != nil {
		return Invite{}, err
	}
	return scanInvite(s.DB.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites i WHERE i.id = $1`, id))
}

func (s *Store) FindByCode(ctx context.Context, code string) (Invite, error) {
	return scanInvite(s.DB.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites i WHERE i.code = $1`, code))
}

func (s *Store) RecordUsage(ctx context.Context, inviteID, accountID string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO invite_usages (invite_id, used_by_account_id)
		VALUES ($1, $2)
	`, inviteID, accountID)
	return err
}

func (s *Store) ListInvites(ctx context.Context, limit, offset int) ([]Invite, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM invites i
		ORDER BY i.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) ListUsages(ctx context.Context, inviteID string) ([]UsageRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, invite_id, used_by_account_id, used_at
		FROM invite_usages
		WHERE invite_id = $1
		ORDER BY used_at DESC
	`, inviteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		if err := rows.Scan(&rec.ID, &rec.InviteID, &rec.UsedByAccountID, &rec.UsedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Revoke(ctx context.Context, inviteID string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE invites SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL
	`, inviteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
