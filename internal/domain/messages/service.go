package messages

import (
	"context"
	"strings"

	"visapath/internal/domain/accounts"
)

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

func staffRole(role string) bool {
	return role == accounts.RoleAgent || role == accounts.RoleAdmin
}

// Send routes a message across the case: the client writes to the
// assigned agent, staff write to the client. The recipient follows from
// who is sending.
func (s *Service) Send(ctx context.Context, actorID, actorRole, caseID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyBody
	}
	if len(body) > MaxBodyLength {
		return Message{}, ErrBodyTooLong
	}

	clientID, agentID, err := s.store.CaseParticipants(ctx, caseID)
	if err != nil {
		return Message{}, err
	}

	var recipientID string
	switch {
	case staffRole(actorRole):
		recipientID = clientID
	case actorID == clientID:
		if agentID == nil {
			return Message{}, ErrNoAgent
		}
		recipientID = *agentID
	default:
		return Message{}, ErrForbidden
	}

	return s.store.CreateMessage(ctx, caseID, actorID, recipientID, body)
}

// Thread returns the case conversation, oldest first, and marks the
// caller's incoming messages as read.
func (s *Service) Thread(ctx context.Context, actorID, actorRole, caseID string, limit, offset int) ([]Message, error) {
	clientID, _, err := s.store.CaseParticipants(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !staffRole(actorRole) && actorID != clientID {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.ListByCase(ctx, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkThreadRead(ctx, caseID, actorID); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, accountID string) (int, error) {
	return s.store.CountUnread(ctx, accountID)
}
