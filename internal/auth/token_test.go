package auth

import (
	"testing"
	"time"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.UserID != "user-1" {
		t.Errorf("principal.UserID = %q, want %q", principal.UserID, "user-1")
	}
	if principal.Username != "alice" {
		t.Errorf("principal.Username = %q, want %q", principal.Username, "alice")
	}
}

func TestTokenService_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Error("expected verification to fail with wrong secret")
	}
}

func TestTokenService_Verify_Expired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Error("expected verification to fail for expired token")
	}
}

func TestTokenService_Verify_Malformed(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.Verify("not-a-jwt"); err == nil {
		t.Error("expected verification to fail for malformed token")
	}
}
