package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type patchTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *Status `json:"status"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// RegisterRoutes mounts the task endpoints. now stamps createdAt/updatedAt;
// nil means time.Now.
func RegisterRoutes(r chi.Router, repo Repository, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", createTask(repo, now))
		r.Get("/", listTasks(repo))
		r.Get("/{id}", getTask(repo))
		r.Put("/{id}", saveTask(repo, now))
		r.Patch("/{id}", patchTask(repo, now))
		r.Delete("/{id}", deleteTask(repo))
	})
}

func createTask(repo Repository, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var d Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		id, err := Save(r.Context(), repo, "", d, now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createdResponse{ID: id})
	}
}

func listTasks(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		tasks, err := repo.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func getTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		t, err := Find(r.Context(), repo, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func saveTask(repo Repository, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var d Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if _, err := Save(r.Context(), repo, chi.URLParam(r, "id"), d, now()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func patchTask(repo Repository, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req patchTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		p, vErrs := validatePatch(req)
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}
		ts := Timestamp(now())
		p.UpdatedAt = &ts

		if err := repo.Update(r.Context(), chi.URLParam(r, "id"), p); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// validatePatch applies the draft rules to the fields that are present.
func validatePatch(req patchTaskRequest) (Patch, []fieldError) {
	d := Draft{Title: "placeholder"}
	if req.Title != nil {
		d.Title = *req.Title
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Status != nil {
		d.Status = *req.Status
		if d.Status == "" {
			return Patch{}, []fieldError{fieldErrorFor(ErrInvalidStatus)}
		}
	}

	d, err := d.Normalize()
	if err != nil {
		return Patch{}, []fieldError{fieldErrorFor(err)}
	}

	var p Patch
	if req.Title != nil {
		p.Title = &d.Title
	}
	if req.Description != nil {
		p.Description = &d.Description
	}
	if req.Status != nil {
		p.Status = &d.Status
	}
	return p, nil
}

func fieldErrorFor(err error) fieldError {
	switch {
	case errors.Is(err, ErrTitleRequired):
		return fieldError{Field: "title", Message: "title is required"}
	case errors.Is(err, ErrTitleTooLong):
		return fieldError{Field: "title", Message: err.Error()}
	default:
		return fieldError{Field: "status", Message: err.Error()}
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleTooLong), errors.Is(err, ErrInvalidStatus):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{fieldErrorFor(err)},
		})
	case errors.Is(err, ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errResponse{Error: "unauthenticated"})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
