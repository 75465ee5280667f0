package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newResolver() *Resolver {
	return NewResolver("paper-engine", []byte("test-secret"))
}

func TestResolveCaller_Valid(t *testing.T) {
	r := newResolver()

	token, err := r.SignToken("user1", time.Hour)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, err := r.ResolveCaller(req)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if userID != "user1" {
		t.Errorf("expected user1, got %s", userID)
	}
}

func TestResolveCaller_Invalid(t *testing.T) {
	r := newResolver()

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage token":  "Bearer not.a.token",
	}
	for name, header := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if _, err := r.ResolveCaller(req); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestResolveCaller_WrongSecret(t *testing.T) {
	other := NewResolver("paper-engine", []byte("other-secret"))
	token, _ := other.SignToken("user1", time.Hour)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if _, err := newResolver().ResolveCaller(req); err == nil {
		t.Error("expected error for token signed with wrong secret")
	}
}

func TestResolveCaller_Expired(t *testing.T) {
	r := newResolver()
	token, _ := r.SignToken("user1", -time.Minute)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if _, err := r.ResolveCaller(req); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestMiddleware(t *testing.T) {
	r := newResolver()

	var gotUser string
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotUser, _ = UserID(req.Context())
	}))

	// Unauthenticated request is rejected before the handler runs.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if gotUser != "" {
		t.Error("handler ran without auth")
	}

	// Authenticated request passes the user through the context.
	token, _ := r.SignToken("user1", time.Hour)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if gotUser != "user1" {
		t.Errorf("expected user1 in context, got %q", gotUser)
	}
}
