package security

import (
	"strings"
	"testing"
	"time"
)

func TestLoginTokenRoundTrip(t *testing.T) {
	token, err := GenerateLoginToken(42, "erika@example.com", "jti-1", time.Hour, "secret")
	if err != nil {
		t.Fatalf("GenerateLoginToken: %v", err)
	}

	claims, err := VerifyLoginToken(token, "secret")
	if err != nil {
		t.Fatalf("VerifyLoginToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "erika@example.com" || claims.TokenID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Purpose != LoginTokenPurpose {
		t.Fatalf("purpose = %q", claims.Purpose)
	}
}

func TestLoginTokenWrongSecret(t *testing.T) {
	token, err := GenerateLoginToken(42, "erika@example.com", "jti-1", time.Hour, "secret")
	if err != nil {
		t.Fatalf("GenerateLoginToken: %v", err)
	}
	if _, err := VerifyLoginToken(token, "other"); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
}

func TestLoginTokenExpired(t *testing.T) {
	token, err := GenerateLoginToken(42, "erika@example.com", "jti-1", -time.Minute, "secret")
	if err != nil {
		t.Fatalf("GenerateLoginToken: %v", err)
	}
	if _, err := VerifyLoginToken(token, "secret"); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestLoginTokenTamperedPayload(t *testing.T) {
	token, err := GenerateLoginToken(42, "erika@example.com", "jti-1", time.Hour, "secret")
	if err != nil {
		t.Fatalf("GenerateLoginToken: %v", err)
	}
	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	if _, err := VerifyLoginToken(tampered, "secret"); err == nil {
		t.Fatalf("expected verification failure for tampered payload")
	}
}

func TestLoginTokenRequiresTokenID(t *testing.T) {
	if _, err := GenerateLoginToken(42, "erika@example.com", "", time.Hour, "secret"); err == nil {
		t.Fatalf("expected error for missing token id")
	}
}
