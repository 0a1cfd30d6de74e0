package invites

import (
	"context"
	"time"

	"visapath/internal/domain/accounts"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func New(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Create(ctx context.Context, createdBy, role string, maxUses int, expiresAt *time.Time) (Invite, error) {
	if role == "" {
		role = accounts.RoleClient
	}
	if maxUses <= 0 {
		maxUses = 1
	}
	code, err := generateCode()
	if err != nil {
		return Invite{}, err
	}
	return s.store.CreateInvite(ctx, code, role, createdBy, maxUses, expiresAt)
}

// Redeem validates the code and records who used it. The usage row stays
// behind after an account purge, with its account reference cleared.
func (s *Service) Redeem(ctx context.Context, code, accountID string) (Invite, error) {
	inv, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return Invite{}, err
	}
	if err := Usable(inv, s.now()); err != nil {
		return Invite{}, err
	}
	if err := s.store.RecordUsage(ctx, inv.ID, accountID); err != nil {
		return Invite{}, err
	}
	inv.UseCount++
	return inv, nil
}

// Validate checks a code without consuming a use.
func (s *Service) Validate(ctx context.Context, code string) (Invite, error) {
	inv, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return Invite{}, err
	}
	if err := Usable(inv, s.now()); err != nil {
		return Invite{}, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Invite, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListInvites(ctx, limit, offset)
}

func (s *Service) Usages(ctx context.Context, inviteID string) ([]UsageRecord, error) {
	return s.store.ListUsages(ctx, inviteID)
}

func (s *Service) Revoke(ctx context.Context, inviteID string) error {
	return s.store.Revoke(ctx, inviteID)
}
