package messages

import "context"

type StoreAPI interface {
	CreateMessage(ctx context.Context, caseID, senderID, recipientID, body string) (Message, error)
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]Message, error)
	MarkThreadRead(ctx context.Context, caseID, recipientID string) error
	CountUnread(ctx context.Context, accountID string) (int, error)
	// CaseParticipants resolves the owning client and assigned agent.
	CaseParticipants(ctx context.Context, caseID string) (clientID string, agentID *string, err error)
}
