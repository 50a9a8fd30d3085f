package auth

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	token, err := v.Generate("user-1", &Claims{Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "jo@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, _ := NewVerifier(Config{Secret: "secret-a"})
	verifier, _ := NewVerifier(Config{Secret: "secret-b"})

	token, err := signer.Generate("user-1", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, err = verifier.Verify(token)
	appErr, ok := apperr.AsAppError(err)
	if !ok || appErr.Code != apperr.ErrCodeUnauthorized {
		t.Errorf("err = %v, want UNAUTHORIZED", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})

	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(signed); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})
	if _, err := v.Verify("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})

	token := gojwt.NewWithClaims(gojwt.SigningMethodNone, &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-1"},
	})
	signed, err := token.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(signed); err == nil {
		t.Error("expected error for alg=none token")
	}
}

func TestVerifyEnforcesIssuer(t *testing.T) {
	signer, _ := NewVerifier(Config{Secret: "test-secret", Issuer: "backend-a"})
	verifier, _ := NewVerifier(Config{Secret: "test-secret", Issuer: "backend-b"})

	token, err := signer.Generate("user-1", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Error("expected error for wrong issuer")
	}
}
