package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

var statusRank = map[string]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusSucceeded:  2,
	StatusFailed:     2,
	StatusCanceled:   2,
}

func ValidStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

// Terminal reports whether a payment in this status can still change.
func Terminal(status string) bool {
	return statusRank[status] == 2
}

// CanAdvance reports whether a payment may move from one status to
// another. Statuses only move forward, so out-of-order or replayed
// gateway events fall out as no-ops.
func CanAdvance(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw webhook
// body. A missing secret fails closed. The comparison is constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}
