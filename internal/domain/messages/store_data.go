package messages

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMessage(ctx context.Context, caseID, senderID, recipientID, body string) (Message, error) {
	bodyEnc, err := s.cipher.EncryptString(body)
	if err != nil {
		return Message{}, err
	}

	var m Message
	err = s.DB.QueryRow(ctx, `
		INSERT INTO messages (case_id, sender_id, recipient_id, body_enc)
		VALUES ($1, $2, $3, $4)
		RETURNING id, case_id, sender_id, recipient_id, read_at, created_at
	`, caseID, senderID, recipientID, bodyEnc).Scan(
		&m.ID, &m.CaseID, &m.SenderID, &m.RecipientID, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	m.Body = body
	return m, nil
}

func (s *Store) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]Message, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, case_id, sender_id, recipient_id, body_enc, read_at, created_at
		FROM messages
		WHERE case_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var bodyEnc []byte
		if err := rows.Scan(&m.ID, &m.CaseID, &m.SenderID, &m.RecipientID, &bodyEnc, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		body, err := s.cipher.DecryptString(bodyEnc)
		if err != nil {
			return nil, err
		}
		m.Body = body
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarkThreadRead(ctx context.Context, caseID, recipientID string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE messages SET read_at = now()
		WHERE case_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`, caseID, recipientID)
	return err
}

func (s *Store) CountUnread(ctx context.Context, accountID string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(1) FROM messages WHERE recipient_id = $1 AND read_at IS NULL
	`, accountID).Scan(&total)
	return total, err
}

func (s *Store) CaseParticipants(ctx context.Context, caseID string) (string, *string, error) {
	var clientID string
	var agentID *string
	err := s.DB.QueryRow(ctx, `
		SELECT client_id, assigned_agent_id FROM cases WHERE id = $1
	`, caseID).Scan(&clientID, &agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrCaseMissing
	}
	return clientID, agentID, err
}
