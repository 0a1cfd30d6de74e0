package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visapath/internal/auth"
	"visapath/internal/platform/identity"
)

type Service struct {
	store    StoreAPI
	identity identity.Provider
	now      func() time.Time
}

func New(store StoreAPI, provider identity.Provider) *Service {
	return &Service{store: store, identity: provider, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return Account{}, fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	if in.FullName == "" {
		return Account{}, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if len(in.Password) < 8 {
		return Account{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if in.Role == "" {
		in.Role = RoleClient
	}
	if !ValidRole(in.Role) {
		return Account{}, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}

	account, err := s.store.CreateAccount(ctx, in, hash)
	if err != nil {
		return Account{}, err
	}

	// Identity mirroring is best effort. A missing uid only means the
	// retention pipeline has nothing to disable later.
	uid, err := s.identity.CreateUser(ctx, account.Email, account.FullName)
	if err != nil {
		slog.Warn("identity user creation failed", "accountId", account.ID, "err", err)
	} else if uid != "" {
		if err := s.store.SetIdentityUID(ctx, account.ID, uid); err != nil {
			slog.Warn("identity uid save failed", "accountId", account.ID, "err", err)
		} else {
			account.IdentityUID = uid
		}
	}
	return account, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	account, err := s.store.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if auth.CheckPassword(account.PasswordHash, password) != nil {
		return Account{}, ErrInvalidCredentials
	}
	// A deletion-pending account may still sign in during the grace
	// period; cancelling the request requires it.
	if !account.IsActive && account.DeletionScheduledFor == nil {
		return Account{}, ErrAccountInactive
	}

	loginAt := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, account.ID, loginAt); err != nil {
		slog.Warn("last login update failed", "accountId", account.ID, "err", err)
	} else {
		account.LastLoginAt = &loginAt
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id, fullName, phone, country string) (Account, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return Account{}, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if err := s.store.UpdateProfile(ctx, id, fullName, phone, country); err != nil {
		return Account{}, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if auth.CheckPassword(account.PasswordHash, current) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, id, hash)
}

// RequestDeletion deactivates the account now and schedules the purge
// after the grace period. Sign-in at the identity provider is blocked on
// a best effort basis.
func (s *Service) RequestDeletion(ctx context.Context, id, reason string) (Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}

	purgeAt := s.now().UTC().AddDate(0, 0, DeletionGraceDays)
	if err := s.store.ScheduleDeletion(ctx, id, purgeAt, reason); err != nil {
		return Account{}, err
	}

	s.disableIdentity(ctx, account)

	return s.store.FindByID(ctx, id)
}

func (s *Service) CancelDeletion(ctx context.Context, id string) (Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if err := s.store.CancelDeletion(ctx, id); err != nil {
		return Account{}, err
	}

	if account.IdentityUID != "" {
		if err := s.identity.SetDisabled(ctx, account.IdentityUID, false); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			slog.Warn("identity re-enable failed", "accountId", id, "err", err)
		}
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]Account, int, error) {
	if role != "" && !ValidRole(role) {
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.store.List(ctx, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, role)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) disableIdentity(ctx context.Context, account Account) {
	if account.IdentityUID == "" {
		return
	}
	if err := s.identity.SetDisabled(ctx, account.IdentityUID, true); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		slog.Warn("identity disable failed", "accountId", account.ID, "err", err)
	}
}
