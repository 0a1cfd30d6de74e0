package accounts

import "errors"

var (
	// ErrValidation wraps input problems the caller can fix. Handlers map
	// it to a 400 response.
	ErrValidation = errors.New("invalid input")

	ErrNotFound                 = errors.New("account not found")
	ErrEmailTaken               = errors.New("email is already registered")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrAccountInactive          = errors.New("account is deactivated")
	ErrDeletionAlreadyScheduled = errors.New("account deletion is already scheduled")
	ErrNoScheduledDeletion      = errors.New("account has no scheduled deletion")
)
