package retention

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"visapath/internal/domain/accounts"
)

// candidateRow selects the account fields the policy reads plus the
// most recent case submission. MAX ignores NULLs, so draft-only cases
// leave the submission empty and the policy falls back to the
// registration date.
const candidateRow = `
	a.id, a.email, COALESCE(a.identity_uid, ''), a.created_at, a.last_login_at,
	(SELECT MAX(c.submission_date) FROM cases c WHERE c.client_id = a.id)
`

func (s *Store) Candidates(ctx context.Context, afterID string, limit int) ([]Candidate, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+candidateRow+`
		FROM accounts a
		WHERE a.role = $1
		  AND a.is_active
		  AND a.deletion_scheduled_for IS NULL
		  AND a.id > $2
		ORDER BY a.id
		LIMIT $3
	`, accounts.RoleClient, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Email, &c.IdentityUID, &c.CreatedAt, &c.LastLoginAt, &c.LatestSubmission); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Schedule(ctx context.Context, accountID string, th Thresholds, purgeAt time.Time, reason string) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// Re-read under a row lock: another run, a sign-in or a manual
	// reactivation may have happened since the page scan.
	var c Candidate
	var role string
	var isActive bool
	var scheduledFor *time.Time
	err = tx.QueryRow(ctx, `
		SELECT `+candidateRow+`, a.role, a.is_active, a.deletion_scheduled_for
		FROM accounts a
		WHERE a.id = $1
		FOR UPDATE OF a
	`, accountID).Scan(&c.ID, &c.Email, &c.IdentityUID, &c.CreatedAt, &c.LastLoginAt,
		&c.LatestSubmission, &role, &isActive, &scheduledFor)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if role != accounts.RoleClient || !isActive || scheduledFor != nil || !Eligible(c, th) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE accounts
		SET is_active = false,
		    deletion_scheduled_for = $2,
		    deletion_reason = $3,
		    updated_at = now()
		WHERE id = $1
	`, accountID, purgeAt, reason); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) DueAccounts(ctx context.Context, now time.Time, afterID string, limit int) ([]DueAccount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, email, COALESCE(identity_uid, '')
		FROM accounts
		WHERE is_active = false
		  AND deletion_scheduled_for IS NOT NULL
		  AND deletion_scheduled_for <= $1
		  AND id > $2
		ORDER BY id
		LIMIT $3
	`, now, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueAccount
	for rows.Next() {
		var a DueAccount
		if err := rows.Scan(&a.ID, &a.Email, &a.IdentityUID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Purge removes the account and its dependents in referential order,
// children before the account row, all inside one transaction. Step
// zero re-checks due-ness under a row lock so a reactivated account is
// never purged.
func (s *Store) Purge(ctx context.Context, accountID string, now time.Time) (PurgeCounts, bool, error) {
	var counts PurgeCounts

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return counts, false, err
	}
	defer tx.Rollback(ctx)

	var isActive bool
	var scheduledFor *time.Time
	err = tx.QueryRow(ctx, `
		SELECT is_active, deletion_scheduled_for
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(&isActive, &scheduledFor)
	if errors.Is(err, pgx.ErrNoRows) {
		return counts, false, nil
	}
	if err != nil {
		return counts, false, err
	}
	if isActive || scheduledFor == nil || scheduledFor.After(now) {
		return counts, false, nil
	}

	del := func(dst *int64, query string, args ...any) error {
		tag, execErr := tx.Exec(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		*dst = tag.RowsAffected()
		return nil
	}

	if err := del(&counts.Notifications, `
		DELETE FROM notifications WHERE account_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	if err := del(&counts.Messages, `
		DELETE FROM messages WHERE sender_id = $1 OR recipient_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	// Documents return their object keys so the blobs can be removed
	// once the transaction has committed.
	rows, err := tx.Query(ctx, `
		DELETE FROM documents
		WHERE case_id IN (SELECT id FROM cases WHERE client_id = $1)
		   OR uploaded_by = $1
		RETURNING storage_key
	`, accountID)
	if err != nil {
		return counts, false, err
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return counts, false, err
		}
		counts.StorageKeys = append(counts.StorageKeys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return counts, false, err
	}
	counts.Documents = int64(len(counts.StorageKeys))

	if err := del(&counts.Cases, `
		DELETE FROM cases WHERE client_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	// A purged staff account may still be the assignee on other
	// clients' cases or the reviewer on their documents; clear those
	// references rather than deleting the rows.
	var cleared int64
	if err := del(&cleared, `
		UPDATE cases SET assigned_agent_id = NULL WHERE assigned_agent_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}
	if err := del(&cleared, `
		UPDATE documents SET reviewed_by = NULL WHERE reviewed_by = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	if err := del(&counts.ActivityLog, `
		DELETE FROM activity_log WHERE account_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}
	if err := del(&cleared, `
		UPDATE activity_log SET actor_id = NULL WHERE actor_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	if err := del(&counts.Settings, `
		DELETE FROM app_settings WHERE key LIKE 'account:' || $1 || ':%'
	`, accountID); err != nil {
		return counts, false, err
	}
	if err := del(&cleared, `
		DELETE FROM idempotency_keys WHERE account_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	// Usage records outlive the account for invite auditing; only the
	// reference is cleared. Same for invites the account issued and for
	// payment rows, which are kept for bookkeeping.
	if err := del(&counts.InviteUsages, `
		UPDATE invite_usages SET used_by_account_id = NULL WHERE used_by_account_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}
	if err := del(&cleared, `
		UPDATE invites SET created_by = NULL WHERE created_by = $1
	`, accountID); err != nil {
		return counts, false, err
	}
	if err := del(&counts.Payments, `
		UPDATE payments SET account_id = NULL WHERE account_id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	var deleted int64
	if err := del(&deleted, `
		DELETE FROM accounts WHERE id = $1
	`, accountID); err != nil {
		return counts, false, err
	}

	return counts, true, tx.Commit(ctx)
}

func (s *Store) ListScheduled(ctx context.Context, limit, offset int) ([]ScheduledAccount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, email, full_name, deletion_scheduled_for, COALESCE(deletion_reason, '')
		FROM accounts
		WHERE deletion_scheduled_for IS NOT NULL
		ORDER BY deletion_scheduled_for ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledAccount
	for rows.Next() {
		var a ScheduledAccount
		if err := rows.Scan(&a.ID, &a.Email, &a.FullName, &a.DeletionScheduledFor, &a.DeletionReason); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
