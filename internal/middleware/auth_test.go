package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/task-tracker-GO/internal/identity"
	appmw "github.com/s1natex/task-tracker-GO/internal/middleware"
)

func newAuthRouter(t *testing.T) (*chi.Mux, *identity.TokenManager) {
	t.Helper()
	tm, err := identity.NewTokenManager(identity.TokenConfig{Secret: "tok_secret", Issuer: "tasks"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(appmw.Authenticate(tm, logger))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		uid, ok := identity.UserID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(uid))
	})
	return r, tm
}

func TestAuth_Bearer(t *testing.T) {
	r, tm := newAuthRouter(t)
	tok, err := tm.Issue("user-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user-42" {
		t.Fatalf("expected 200 user-42, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuth_AnonymousPassesThrough(t *testing.T) {
	r, _ := newAuthRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected anonymous request to reach handler, got %d", rec.Code)
	}
}

func TestAuth_BadTokens(t *testing.T) {
	r, _ := newAuthRouter(t)

	for _, h := range []string{"Bearer nope", "Basic dXNlcjpwYXNz", "Bearer "} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", h)
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected 401, got %d", h, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("%q: expected a WWW-Authenticate challenge", h)
		}
	}
}
