package invites

import "errors"

var (
	ErrNotFound  = errors.New("invite not found")
	ErrExpired   = errors.New("invite has expired")
	ErrExhausted = errors.New("invite has no uses left")
	ErrRevoked   = errors.New("invite was revoked")
)
