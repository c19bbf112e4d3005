package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Issuer != "noted" || claims.Subject != "user-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	token, _ := NewSigner("first").Sign("user-1", time.Hour)

	if _, err := NewSigner("second").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign token: err = %v, want ErrInvalidToken", err)
	}
	if _, err := Parse("not-a-jwt"); err == nil {
		t.Error("garbage should be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	s := NewSigner("secret")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	token, err := s.Sign("user-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Parse(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := s.Parse(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestSetSecretIgnoresEmpty(t *testing.T) {
	before := current()
	SetSecret("")
	if current() != before {
		t.Error("empty secret replaced the signer")
	}
}
