package auth

import (
	"testing"
	"time"
)

func TestIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(""); err == nil {
		t.Fatal("NewIssuer should reject an empty secret")
	}
}

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	token, expiresAt, err := issuer.IssueToken("p-1", "Morgan")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("Token should expire in the future")
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.ProfileID != "p-1" || claims.Name != "Morgan" {
		t.Errorf("Claims round-trip failed: %+v", claims)
	}
}

func TestValidateRejectsForeignToken(t *testing.T) {
	issuer, _ := NewIssuer("secret-a")
	other, _ := NewIssuer("secret-b")

	token, _, err := other.IssueToken("p-1", "")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if _, err := issuer.ValidateToken(token); err == nil {
		t.Error("Token signed with a different secret must not validate")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer, _ := NewIssuer("test-secret")
	if _, err := issuer.ValidateToken("not-a-token"); err == nil {
		t.Error("Malformed token must not validate")
	}
}
