package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/auth"
)

type stubValidator struct {
	ident *auth.Identity
	err   error
	seen  string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (*auth.Identity, error) {
	s.seen = token
	if s.err != nil {
		return nil, s.err
	}
	return s.ident, nil
}

func TestSessionAuth_ValidToken(t *testing.T) {
	ident := &auth.Identity{UserID: uuid.New(), DisplayName: "Amara", Email: "amara@example.com"}
	validator := &stubValidator{ident: ident}

	var got *auth.Identity
	handler := SessionAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromCtx(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if validator.seen != "sometoken" {
		t.Errorf("validator saw token %q, want %q", validator.seen, "sometoken")
	}
	if got == nil || got.UserID != ident.UserID {
		t.Error("handler should see the validated identity in context")
	}
}

func TestSessionAuth_MissingHeader(t *testing.T) {
	handler := SessionAuth(&stubValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestSessionAuth_MalformedHeader(t *testing.T) {
	for _, header := range []string{"sometoken", "Basic abc", "Bearer", "Bearer "} {
		handler := SessionAuth(&stubValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("handler should not run for header %q", header)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d, want 401", header, rec.Code)
		}
	}
}

func TestSessionAuth_InvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("token expired")}
	handler := SessionAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestIdentityFromCtx_Empty(t *testing.T) {
	if got := IdentityFromCtx(context.Background()); got != nil {
		t.Errorf("expected nil identity, got %+v", got)
	}
}
