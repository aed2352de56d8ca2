package signup

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type errResponse struct {
	Error string `json:"error"`
}

func RegisterRoutes(r chi.Router, logger *slog.Logger) {
	r.Post("/signup/validate", validateSignup(logger))
}

func validateSignup(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var d Data
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		res := Validate(d)
		if !res.IsValid {
			// user input problem, not a fault
			logger.Debug("signup_rejected", slog.String("reason", res.Error))
			writeJSON(w, http.StatusUnprocessableEntity, res)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
