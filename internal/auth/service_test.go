package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil)
	acc := &Account{ID: uuid.New(), Email: "amara@example.com", DisplayName: "Amara"}

	token, err := svc.issueToken(acc)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	ident, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if ident.UserID != acc.ID {
		t.Errorf("user id: got %s, want %s", ident.UserID, acc.ID)
	}
	// Name and email ride in the token so request handling never needs a
	// user lookup.
	if ident.DisplayName != "Amara" || ident.Email != "amara@example.com" {
		t.Errorf("identity claims: got %+v", ident)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService(nil)
	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := svc.ValidateToken(context.Background(), token); err != ErrInvalidCredentials {
			t.Errorf("token %q: expected ErrInvalidCredentials, got %v", token, err)
		}
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := &service{secret: []byte("one-secret")}
	verifier := &service{secret: []byte("another-secret")}

	token, err := issuer.issueToken(&Account{ID: uuid.New()})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifier.ValidateToken(context.Background(), token); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService(nil)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-25 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(svc.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for expired token, got %v", err)
	}
}
