package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const caseColumns = `
	id, client_id, assigned_agent_id, case_type, country, title,
	COALESCE(description, ''), status, COALESCE(decision_notes, ''),
	submission_date, created_at, updated_at`

func scanCase(row pgx.Row) (Case, error) {
	var c Case
	err := row.Scan(
		&c.ID, &c.ClientID, &c.AssignedAgentID, &c.CaseType, &c.Country, &c.Title,
		&c.Description, &c.Status, &c.DecisionNotes, &c.SubmissionDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Case{}, ErrNotFound
	}
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

func (s *Store) CreateCase(ctx context.Context, in CreateInput) (Case, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO cases (client_id, case_type, country, title, description, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING `+caseColumns,
		in.ClientID, in.CaseType, in.Country, in.Title, in.Description, StatusDraft)
	return scanCase(row)
}

func (s *Store) FindByID(ctx context.Context, id string) (Case, error) {
	return scanCase(s.DB.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
}

func (s *Store) UpdateDetails(ctx context.Context, id string, in UpdateInput) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE cases
		SET case_type = $1, country = $2, title = $3, description = NULLIF($4, ''), updated_at = now()
		WHERE id = $5
	`, in.CaseType, in.Country, in.Title, in.Description, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus writes the new status. The submission date is only ever set
// once, on the first transition that carries one.
func (s *Store) SetStatus(ctx context.Context, id, status, decisionNotes string, submissionDate *time.Time) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE cases
		SET status = $1,
		    decision_notes = COALESCE(NULLIF($2, ''), decision_notes),
		    submission_date = COALESCE(submission_date, $3),
		    updated_at = now()
		WHERE id = $4
	`, status, decisionNotes, submissionDate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Assign(ctx context.Context, id string, agentID *string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE cases SET assigned_agent_id = $1, updated_at = now() WHERE id = $2
	`, agentID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Case, error) {
	query, args := buildFilterQuery("SELECT "+caseColumns, filter)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildFilterQuery("SELECT COUNT(1)", filter)
	var total int
	err := s.DB.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `SELECT status, COUNT(1) FROM cases GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func buildFilterQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM cases WHERE 1=1"
	args := []any{}
	if filter.ClientID != "" {
		query += fmt.Sprintf(" AND client_id = $%d", len(args)+1)
		args = append(args, filter.ClientID)
	}
	if filter.AssignedAgentID != "" {
		query += fmt.Sprintf(" AND assigned_agent_id = $%d", len(args)+1)
		args = append(args, filter.AssignedAgentID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.CaseType != "" {
		query += fmt.Sprintf(" AND case_type = $%d", len(args)+1)
		args = append(args, filter.CaseType)
	}
	return query, args
}
