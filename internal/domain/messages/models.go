package messages

import "time"

type Message struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"caseId"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
