package accounts

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateAccount(ctx context.Context, in RegisterInput, passwordHash string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id, fullName, phone, country string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetIdentityUID(ctx context.Context, id, uid string) error
	ScheduleDeletion(ctx context.Context, id string, at time.Time, reason string) error
	CancelDeletion(ctx context.Context, id string) error
	List(ctx context.Context, role string, limit, offset int) ([]Account, error)
	Count(ctx context.Context, role string) (int, error)
}
