package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const documentColumns = `
	id, case_id, uploaded_by, file_name, content_type, file_size, storage_key,
	status, COALESCE(review_notes, ''), reviewed_by, reviewed_at, created_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.CaseID, &d.UploadedBy, &d.FileName, &d.ContentType, &d.FileSize,
		&d.StorageKey, &d.Status, &d.ReviewNotes, &d.ReviewedBy, &d.ReviewedAt, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

func (s *Store) CreateDocument(ctx context.Context, in UploadInput, storageKey string) (Document, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO documents (case_id, uploaded_by, file_name, content_type, file_size, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+documentColumns,
		in.CaseID, in.UploadedBy, in.FileName, in.ContentType, in.FileSize, storageKey, StatusPendingReview)
	return scanDocument(row)
}

func (s *Store) FindByID(ctx context.Context, id string) (Document, error) {
	return scanDocument(s.DB.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (s *Store) ListByCase(ctx context.Context, caseID string) ([]Document, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE case_id = $1
		ORDER BY created_at DESC
	`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SetReview(ctx context.Context, id, status, notes, reviewerID string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE documents
		SET status = $1, review_notes = NULLIF($2, ''), reviewed_by = $3, reviewed_at = now()
		WHERE id = $4 AND status = $5
	`, status, notes, reviewerID, id, StatusPendingReview)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := s.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return ErrNotPending
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CaseOwner(ctx context.Context, caseID string) (string, string, error) {
	var clientID, status string
	err := s.DB.QueryRow(ctx, `SELECT client_id, status FROM cases WHERE id = $1`, caseID).Scan(&clientID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrCaseMissing
	}
	return clientID, status, err
}
