package invites

import "time"

type Invite struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Role      string     `json:"role"`
	MaxUses   int        `json:"maxUses"`
	UseCount  int        `json:"useCount"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

type UsageRecord struct {
	ID              string    `json:"id"`
	InviteID        string    `json:"inviteId"`
	UsedByAccountID *string   `json:"usedByAccountId,omitempty"`
	UsedAt          time.Time `json:"usedAt"`
}
