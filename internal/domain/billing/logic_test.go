package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusSucceeded, true},
		{StatusPending, StatusCanceled, true},
		{StatusProcessing, StatusSucceeded, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusSucceeded, StatusFailed, false},
		{StatusFailed, StatusSucceeded, false},
		{StatusCanceled, StatusProcessing, false},
		{StatusPending, StatusPending, false},
		{StatusPending, "refunded", false},
		{"", StatusSucceeded, false},
	}
	for _, tt := range tests {
		if got := CanAdvance(tt.from, tt.to); got != tt.want {
			t.Errorf("CanAdvance(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{StatusSucceeded, StatusFailed, StatusCanceled} {
		if !Terminal(status) {
			t.Errorf("Terminal(%q) = false", status)
		}
	}
	for _, status := range []string{StatusPending, StatusProcessing} {
		if Terminal(status) {
			t.Errorf("Terminal(%q) = true", status)
		}
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","status":"succeeded"}`)
	good := sign(secret, body)

	if !VerifySignature(secret, body, good) {
		t.Error("valid signature rejected")
	}
	if !VerifySignature(secret, body, "sha256="+good) {
		t.Error("prefixed signature rejected")
	}
	if !VerifySignature(secret, body, strings.ToUpper(good)) {
		t.Error("uppercase hex signature rejected")
	}
	if VerifySignature(secret, body, sign("other-secret", body)) {
		t.Error("signature from wrong secret accepted")
	}
	if VerifySignature(secret, []byte(`tampered`), good) {
		t.Error("signature over different body accepted")
	}
	if VerifySignature("", body, good) {
		t.Error("empty secret must fail closed")
	}
	if VerifySignature(secret, body, "") {
		t.Error("empty signature accepted")
	}
}
