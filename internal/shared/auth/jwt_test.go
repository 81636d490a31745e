package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	tokens, err := NewTokens("s3cret", "dev")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	token, err := tokens.Sign(Claims{Sub: "user-1", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "u@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Exp-claims.Iat != int64(DefaultTTL/time.Second) {
		t.Fatalf("expected default ttl, got iat=%d exp=%d", claims.Iat, claims.Exp)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	tokens, _ := NewTokens("s3cret", "dev")
	other, _ := NewTokens("different", "dev")
	good, _ := tokens.Sign(Claims{Sub: "user-1"})
	foreign, _ := other.Sign(Claims{Sub: "user-1"})
	parts := strings.Split(good, ".")

	cases := map[string]string{
		"empty":          "",
		"two segments":   parts[0] + "." + parts[1],
		"wrong secret":   foreign,
		"tampered body":  parts[0] + ".eyJzdWIiOiJhZG1pbiJ9." + parts[2],
		"bad signature":  parts[0] + "." + parts[1] + ".AAAA",
		"alg none":       "eyJhbGciOiJub25lIn0." + parts[1] + "." + parts[2],
		"not base64 hdr": "!!!." + parts[1] + "." + parts[2],
	}
	for name, token := range cases {
		if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	tokens, _ := NewTokens("s3cret", "dev")
	token, err := tokens.Sign(Claims{Sub: "user-1", Iat: 1000, Exp: 2000})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := tokens.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestNewTokensRequiresSecretInProduction(t *testing.T) {
	if _, err := NewTokens("", "production"); err == nil {
		t.Fatal("expected error without secret in production")
	}
	if _, err := NewTokens("", "dev"); err != nil {
		t.Fatalf("dev fallback: %v", err)
	}
}

func TestSignRequiresSubject(t *testing.T) {
	tokens, _ := NewTokens("s3cret", "dev")
	if _, err := tokens.Sign(Claims{}); err == nil {
		t.Fatal("expected error without sub")
	}
}
