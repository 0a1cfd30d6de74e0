package invites

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Usable reports whether the invite can still admit a registration at
// the given instant.
func Usable(inv Invite, now time.Time) error {
	if inv.RevokedAt != nil {
		return ErrRevoked
	}
	if inv.ExpiresAt != nil && !inv.ExpiresAt.After(now) {
		return ErrExpired
	}
	if inv.MaxUses > 0 && inv.UseCount >= inv.MaxUses {
		return ErrExhausted
	}
	return nil
}

func generateCode() (string, error) {
	buff := make([]byte, 9)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
