package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"visapath/internal/platform/identity"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*Account)}
}

func (f *fakeStore) CreateAccount(ctx context.Context, in RegisterInput, passwordHash string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == in.Email {
			return Account{}, ErrEmailTaken
		}
	}
	f.seq++
	now := time.Now().UTC()
	a := &Account{
		ID: fmt.Sprintf("acc-%d", f.seq), Email: in.Email, FullName: in.FullName,
		Role: in.Role, Phone: in.Phone, CountryOfOrigin: in.CountryOfOrigin,
		IsActive: true, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now,
	}
	f.accounts[a.ID] = a
	return *a, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return *a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (f *fakeStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.LastLoginAt = &at
	}
	return nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, id, fullName, phone, country string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.FullName, a.Phone, a.CountryOfOrigin = fullName, phone, country
	return nil
}

func (f *fakeStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (f *fakeStore) SetIdentityUID(ctx context.Context, id, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.IdentityUID = uid
	}
	return nil
}

func (f *fakeStore) ScheduleDeletion(ctx context.Context, id string, at time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if a.DeletionScheduledFor != nil {
		return ErrDeletionAlreadyScheduled
	}
	a.IsActive = false
	a.DeletionScheduledFor = &at
	a.DeletionReason = reason
	return nil
}

func (f *fakeStore) CancelDeletion(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if a.DeletionScheduledFor == nil {
		return ErrNoScheduledDeletion
	}
	a.IsActive = true
	a.DeletionScheduledFor = nil
	a.DeletionReason = ""
	return nil
}

func (f *fakeStore) List(ctx context.Context, role string, limit, offset int) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Account
	for _, a := range f.accounts {
		if role == "" || a.Role == role {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context, role string) (int, error) {
	items, _ := f.List(ctx, role, 0, 0)
	return len(items), nil
}

type fakeIdentity struct {
	mu        sync.Mutex
	createErr error
	disabled  map[string]bool
	deleted   []string
}

func (f *fakeIdentity) CreateUser(ctx context.Context, email, displayName string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "idp-" + email, nil
}

func (f *fakeIdentity) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled == nil {
		f.disabled = make(map[string]bool)
	}
	f.disabled[uid] = disabled
	return nil
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, uid)
	return nil
}

var _ identity.Provider = (*fakeIdentity)(nil)

func newTestService() (*Service, *fakeStore, *fakeIdentity) {
	store := newFakeStore()
	idp := &fakeIdentity{}
	return New(store, idp), store, idp
}

func TestRegisterDefaultsToClientAndMirrorsIdentity(t *testing.T) {
	svc, store, _ := newTestService()

	account, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Maria@Example.com",
		Password: "correct-horse",
		FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if account.Role != RoleClient {
		t.Errorf("expected default role CLIENT, got %q", account.Role)
	}
	if account.Email != "maria@example.com" {
		t.Errorf("expected lowercased email, got %q", account.Email)
	}
	if account.IdentityUID != "idp-maria@example.com" {
		t.Errorf("expected identity uid mirrored, got %q", account.IdentityUID)
	}

	stored, err := store.FindByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("stored account missing: %v", err)
	}
	if stored.IdentityUID != account.IdentityUID {
		t.Errorf("identity uid not persisted: %q", stored.IdentityUID)
	}
}

func TestRegisterSucceedsWhenIdentityProviderFails(t *testing.T) {
	svc, _, idp := newTestService()
	idp.createErr = errors.New("identity service down")

	account, err := svc.Register(context.Background(), RegisterInput{
		Email:    "jonas@example.com",
		Password: "correct-horse",
		FullName: "Jonas Berg",
	})
	if err != nil {
		t.Fatalf("Register must tolerate identity failures: %v", err)
	}
	if account.IdentityUID != "" {
		t.Errorf("expected empty identity uid, got %q", account.IdentityUID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService()
	cases := []RegisterInput{
		{Email: "not-an-email", Password: "correct-horse", FullName: "X"},
		{Email: "x@example.com", Password: "short", FullName: "X"},
		{Email: "x@example.com", Password: "correct-horse", FullName: ""},
		{Email: "x@example.com", Password: "correct-horse", FullName: "X", Role: "SUPERUSER"},
	}
	for i, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestAuthenticateRecordsLastLogin(t *testing.T) {
	svc, store, _ := newTestService()
	loginTime := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return loginTime }

	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	authed, err := svc.Authenticate(context.Background(), "maria@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if authed.LastLoginAt == nil || !authed.LastLoginAt.Equal(loginTime) {
		t.Errorf("expected lastLoginAt %v, got %v", loginTime, authed.LastLoginAt)
	}

	stored, _ := store.FindByID(context.Background(), account.ID)
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(loginTime) {
		t.Errorf("last login not persisted")
	}
}

func TestAuthenticateRejectsBadCredentialsAndInactive(t *testing.T) {
	svc, store, _ := newTestService()
	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "maria@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	store.mu.Lock()
	store.accounts[account.ID].IsActive = false
	store.mu.Unlock()
	if _, err := svc.Authenticate(context.Background(), "maria@example.com", "correct-horse"); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestRequestDeletionSchedulesAfterGracePeriod(t *testing.T) {
	svc, store, idp := newTestService()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	updated, err := svc.RequestDeletion(context.Background(), account.ID, DeletionReasonUserRequested)
	if err != nil {
		t.Fatalf("RequestDeletion failed: %v", err)
	}
	if updated.IsActive {
		t.Error("expected account deactivated")
	}
	wantPurge := now.AddDate(0, 0, DeletionGraceDays)
	if updated.DeletionScheduledFor == nil || !updated.DeletionScheduledFor.Equal(wantPurge) {
		t.Errorf("expected purge at %v, got %v", wantPurge, updated.DeletionScheduledFor)
	}
	if updated.DeletionReason != DeletionReasonUserRequested {
		t.Errorf("unexpected reason %q", updated.DeletionReason)
	}
	if disabled := idp.disabled[account.IdentityUID]; !disabled {
		t.Error("expected identity sign-in disabled")
	}

	if _, err := svc.RequestDeletion(context.Background(), account.ID, DeletionReasonUserRequested); !errors.Is(err, ErrDeletionAlreadyScheduled) {
		t.Errorf("expected ErrDeletionAlreadyScheduled, got %v", err)
	}
	_ = store
}

func TestCancelDeletionReactivates(t *testing.T) {
	svc, _, idp := newTestService()
	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.CancelDeletion(context.Background(), account.ID); !errors.Is(err, ErrNoScheduledDeletion) {
		t.Errorf("expected ErrNoScheduledDeletion, got %v", err)
	}

	if _, err := svc.RequestDeletion(context.Background(), account.ID, DeletionReasonUserRequested); err != nil {
		t.Fatalf("RequestDeletion failed: %v", err)
	}
	restored, err := svc.CancelDeletion(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("CancelDeletion failed: %v", err)
	}
	if !restored.IsActive || restored.DeletionScheduledFor != nil || restored.DeletionReason != "" {
		t.Errorf("expected account restored, got %+v", restored)
	}
	if disabled := idp.disabled[account.IdentityUID]; disabled {
		t.Error("expected identity sign-in re-enabled")
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, _, _ := newTestService()
	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), account.ID, "wrong", "new-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), account.ID, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "maria@example.com", "new-password-1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestAuthenticateAllowedDuringDeletionGrace(t *testing.T) {
	svc, store, _ := newTestService()
	account, err := svc.Register(context.Background(), RegisterInput{
		Email: "maria@example.com", Password: "correct-horse", FullName: "Maria Silva",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.RequestDeletion(context.Background(), account.ID, DeletionReasonUserRequested); err != nil {
		t.Fatalf("RequestDeletion failed: %v", err)
	}

	signedIn, err := svc.Authenticate(context.Background(), "maria@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("expected sign-in during the grace period, got %v", err)
	}
	if signedIn.DeletionScheduledFor == nil {
		t.Error("expected the pending deletion to stay visible on the signed-in account")
	}
	_ = store
}
