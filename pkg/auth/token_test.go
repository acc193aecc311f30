package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager([]byte("test-secret"), time.Hour)

	company := uint(146)
	principal := Principal{Email: "io@example.com", Role: "io", AccessID: 42, CompanyID: &company}

	token, err := manager.Generate(principal)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got.Email != principal.Email || got.Role != principal.Role || got.AccessID != principal.AccessID {
		t.Fatalf("principal mismatch: got %+v", got)
	}
	if got.CompanyID == nil || *got.CompanyID != 146 {
		t.Fatalf("expected company id 146, got %v", got.CompanyID)
	}
	if got.UnitID() != 146 {
		t.Fatalf("expected unit id from company binding, got %d", got.UnitID())
	}
}

func TestUnitIDFallsBackToAccessID(t *testing.T) {
	p := Principal{Email: "io@example.com", Role: "io", AccessID: 77}
	if p.UnitID() != 77 {
		t.Fatalf("expected access id fallback, got %d", p.UnitID())
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	manager := NewTokenManager([]byte("secret-a"), time.Hour)
	other := NewTokenManager([]byte("secret-b"), time.Hour)

	token, err := manager.Generate(Principal{Email: "io@example.com", Role: "io", AccessID: 1})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification to fail for a foreign signature")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), -time.Minute)
	token, err := manager.Generate(Principal{Email: "io@example.com", Role: "io", AccessID: 1})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := manager.Verify(token); err == nil {
		t.Fatal("expected verification to fail for an expired token")
	}
}

func TestFromAuthorizationHeader(t *testing.T) {
	if _, ok := FromAuthorizationHeader(""); ok {
		t.Fatal("empty header should not parse")
	}
	if _, ok := FromAuthorizationHeader("Basic abc"); ok {
		t.Fatal("non-bearer header should not parse")
	}
	token, ok := FromAuthorizationHeader("Bearer abc.def.ghi")
	if !ok || token != "abc.def.ghi" {
		t.Fatalf("expected bearer token, got %q ok=%v", token, ok)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !VerifyPassword("hunter2", hash) {
		t.Fatal("expected password to verify against its own hash")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("wrong password must not verify")
	}
}
