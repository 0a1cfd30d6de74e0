package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CaseSummary(ctx context.Context, caseID string) (*CaseSummary, error) {
	var sum CaseSummary
	err := s.DB.QueryRow(ctx, `
		SELECT
			c.id, c.case_type, c.country, c.title, COALESCE(c.description, ''),
			c.status, COALESCE(c.decision_notes, ''), c.submission_date,
			c.created_at, c.updated_at,
			cl.full_name, cl.email,
			COALESCE(ag.full_name, '')
		FROM cases c
		JOIN accounts cl ON cl.id = c.client_id
		LEFT JOIN accounts ag ON ag.id = c.assigned_agent_id
		WHERE c.id = $1
	`, caseID).Scan(
		&sum.CaseID, &sum.CaseType, &sum.Country, &sum.Title, &sum.Description,
		&sum.Status, &sum.DecisionNotes, &sum.SubmissionDate,
		&sum.CreatedAt, &sum.UpdatedAt,
		&sum.ClientName, &sum.ClientEmail,
		&sum.AgentName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("load case summary: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
		SELECT file_name, content_type, file_size, status, created_at
		FROM documents
		WHERE case_id = $1
		ORDER BY created_at ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DocumentLine
		if err := rows.Scan(&d.FileName, &d.ContentType, &d.FileSize, &d.Status, &d.UploadedAt); err != nil {
			return nil, err
		}
		sum.Documents = append(sum.Documents, d)
	}
	return &sum, rows.Err()
}
