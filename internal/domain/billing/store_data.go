package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// account_id goes NULL when the owning account is purged; the payment
// row itself is kept for bookkeeping.
const paymentColumns = `
	id, COALESCE(account_id::text, ''), plan_code, amount_cents, currency, status,
	COALESCE(gateway_ref, ''), created_at, updated_at
`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.AccountID, &p.PlanCode, &p.AmountCents, &p.Currency,
		&p.Status, &p.GatewayRef, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (s *Store) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT code, name, amount_cents, currency, active, created_at
		FROM plans
		WHERE active
		ORDER BY amount_cents ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.Code, &p.Name, &p.AmountCents, &p.Currency, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) FindPlan(ctx context.Context, code string) (Plan, error) {
	var p Plan
	err := s.DB.QueryRow(ctx, `
		SELECT code, name, amount_cents, currency, active, created_at
		FROM plans
		WHERE code = $1 AND active
	`, code).Scan(&p.Code, &p.Name, &p.AmountCents, &p.Currency, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	return p, err
}

func (s *Store) CreatePayment(ctx context.Context, accountID, planCode string, amountCents int64, currency string) (Payment, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO payments (account_id, plan_code, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, '`+StatusPending+`')
		RETURNING `+paymentColumns,
		accountID, planCode, amountCents, currency)
	return scanPayment(row)
}

func (s *Store) FindPayment(ctx context.Context, id string) (Payment, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *Store) FindPaymentByGatewayRef(ctx context.Context, ref string) (Payment, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_ref = $1`, ref)
	return scanPayment(row)
}

func (s *Store) SetGatewayRef(ctx context.Context, paymentID, ref string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE payments SET gateway_ref = $2, updated_at = now() WHERE id = $1
	`, paymentID, ref)
	return err
}

func (s *Store) UpdateStatus(ctx context.Context, paymentID, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payments SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, paymentID, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListForAccount(ctx context.Context, accountID string, limit, offset int) ([]Payment, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *Store) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Payment, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status IN ('`+StatusPending+`', '`+StatusProcessing+`')
		  AND updated_at <= $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.PlanCode, &p.AmountCents, &p.Currency,
			&p.Status, &p.GatewayRef, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO processed_webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
