package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/s1natex/task-tracker-GO/internal/identity"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type authErr struct {
	Error string `json:"error"`
}

// Authenticate resolves "Authorization: Bearer <token>" into the request's
// user id. Requests without the header pass through anonymously; handlers
// decide whether they need a user. A present but bad token is a 401.
func Authenticate(v TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(authz, "Bearer ")
			if token == authz || strings.TrimSpace(token) == "" {
				unauthorized(w, `Bearer realm="tasks"`)
				return
			}

			uid, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Info("auth_rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				unauthorized(w, `Bearer realm="tasks", error="invalid_token"`)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), uid)))
		})
	}
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("Content-Type", "application/json")
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(authErr{Error: "unauthorized"})
}
