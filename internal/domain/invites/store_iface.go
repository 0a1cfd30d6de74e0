package invites

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateInvite(ctx context.Context, code, role, createdBy string, maxUses int, expiresAt *time.Time) (Invite, error)
	FindByCode(ctx context.Context, code string) (Invite, error)
	RecordUsage(ctx context.Context, inviteID, accountID string) error
	ListInvites(ctx context.Context, limit, offset int) ([]Invite, error)
	ListUsages(ctx context.Context, inviteID string) ([]UsageRecord, error)
	Revoke(ctx context.Context, inviteID string) error
}
