package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("SITEDESK_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("emp-42", "reviewer", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "emp-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != "REVIEWER" {
		t.Fatalf("role not normalized: %s", claims.Role)
	}
	if claims.Issuer != "sitedesk" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestParseAndValidateRejectsExpired(t *testing.T) {
	t.Setenv("SITEDESK_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("emp-42", "reviewer", time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := ParseAndValidate(token); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("SITEDESK_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("emp-42", "reviewer", time.Minute); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithEmployee(context.Background(), "emp-7", "reviewer")
	id, ok := EmployeeIDFromContext(ctx)
	if !ok || id != "emp-7" {
		t.Fatalf("unexpected employee id: %s, ok=%v", id, ok)
	}
	if !HasRole(ctx, "REVIEWER") || !HasRole(ctx, "reviewer") {
		t.Fatalf("HasRole missing expected role: %q", RoleFromContext(ctx))
	}
	if HasRole(ctx, "admin") {
		t.Fatal("unexpected role found")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
