package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !c.Configured() {
		t.Fatal("expected configured cipher")
	}

	plain := []byte("sensitive message body")
	sealed, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Error("ciphertext must differ from plaintext")
	}

	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestUnconfiguredCipherPassesThrough(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Configured() {
		t.Fatal("expected unconfigured cipher")
	}
	sealed, err := c.EncryptString("hello")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if string(sealed) != "hello" {
		t.Errorf("expected passthrough, got %q", sealed)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New(hex.EncodeToString([]byte("short"))); err == nil {
		t.Error("expected error for short key")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	c, _ := New(testKeyHex)
	sealed, err := c.EncryptString("original")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := c.Decrypt(sealed); err == nil {
		t.Error("expected authentication failure for tampered ciphertext")
	}
}

func TestDecodeKeyFormats(t *testing.T) {
	raw := strings.Repeat("k", 32)
	for _, encoded := range []string{
		hex.EncodeToString([]byte(raw)),
		"a2tra2tra2tra2tra2tra2tra2tra2tra2tra2tra2s=",
	} {
		c, err := New(encoded)
		if err != nil {
			t.Errorf("New(%q) failed: %v", encoded, err)
			continue
		}
		if !c.Configured() {
			t.Errorf("New(%q): expected configured cipher", encoded)
		}
	}
}
