package security_test

import (
	"strings"
	"testing"

	"github.com/ollyhq/olly-backend/pkg/config"
	"github.com/ollyhq/olly-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGenerateLicenseKeyFormat(t *testing.T) {
	key, err := security.GenerateLicenseKey()
	if err != nil {
		t.Fatalf("GenerateLicenseKey returned error: %v", err)
	}
	parts := strings.Split(key, "-")
	if len(parts) != 5 || parts[0] != "OLLY" {
		t.Fatalf("unexpected key format %q", key)
	}
	for _, group := range parts[1:] {
		if len(group) != 4 {
			t.Fatalf("unexpected group length in %q", key)
		}
	}
}

func TestGenerateRedeemCodeUnique(t *testing.T) {
	a, err := security.GenerateRedeemCode()
	if err != nil {
		t.Fatalf("GenerateRedeemCode returned error: %v", err)
	}
	b, err := security.GenerateRedeemCode()
	if err != nil {
		t.Fatalf("GenerateRedeemCode returned error: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct codes, got %q twice", a)
	}
}
