package tasks

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen is the longest title the edit form accepts.
const MaxTitleLen = 100

// Draft is what a user submits from the edit form.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Normalize trims the text fields, defaults the status and checks the result.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.Status == "" {
		d.Status = StatusTodo
	}
	if d.Title == "" {
		return d, ErrTitleRequired
	}
	if utf8.RuneCountInString(d.Title) > MaxTitleLen {
		return d, ErrTitleTooLong
	}
	if !d.Status.Valid() {
		return d, ErrInvalidStatus
	}
	return d, nil
}

// Save creates the task when id is empty and updates it otherwise. It stamps
// updatedAt with now, and createdAt as well on creation. The returned id is
// the new or the existing one.
func Save(ctx context.Context, repo Repository, id string, d Draft, now time.Time) (string, error) {
	d, err := d.Normalize()
	if err != nil {
		return "", err
	}
	ts := Timestamp(now)

	if id == "" {
		return repo.Create(ctx, Fields{
			Title:       d.Title,
			Description: d.Description,
			Status:      d.Status,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
	}

	err = repo.Update(ctx, id, Patch{
		Title:       &d.Title,
		Description: &d.Description,
		Status:      &d.Status,
		UpdatedAt:   &ts,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Find returns one task by scanning the user's list.
func Find(ctx context.Context, repo Repository, id string) (Task, error) {
	list, err := repo.List(ctx)
	if err != nil {
		return Task{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return Task{}, ErrNotFound
}
