package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
	"github.com/s1natex/task-tracker-GO/internal/identity"
	"github.com/s1natex/task-tracker-GO/internal/signup"
)

type errResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func RegisterRoutes(r chi.Router, s *Service) {
	r.Post("/signup", signupHandler(s))
	r.Post("/login", loginHandler(s))
	r.Get("/profile", profileHandler(s))
}

func signupHandler(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d signup.Data
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		sess, err := s.Signup(r.Context(), d)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func loginHandler(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		sess, err := s.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func profileHandler(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := identity.UserID(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "unauthenticated"})
			return
		}
		p, err := s.Profile(r.Context(), uid)
		if errors.Is(err, docstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var vErr *signup.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, signup.Result{Error: vErr.Message})
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errResponse{Error: "email_taken"})
	case errors.Is(err, ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", `Bearer realm="tasks"`)
		writeJSON(w, http.StatusUnauthorized, errResponse{Error: "invalid_credentials"})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
