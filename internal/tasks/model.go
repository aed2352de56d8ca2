package tasks

import (
	"time"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TimeLayout matches JavaScript's Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in TimeLayout (UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Task is a stored task. ID is the store-assigned document key.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Fields is everything Create writes. Nothing is defaulted by the repository.
type Fields struct {
	Title       string
	Description string
	Status      Status
	CreatedAt   string
	UpdatedAt   string
}

// Patch names the fields Update writes; nil fields are left untouched.
// createdAt is written once by Create and has no Patch field.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	UpdatedAt   *string `json:"updatedAt,omitempty"`
}

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldStatus      = "status"
	fieldCreatedAt   = "createdAt"
	fieldUpdatedAt   = "updatedAt"
)

func (f Fields) document() docstore.Fields {
	return docstore.Fields{
		fieldTitle:       f.Title,
		fieldDescription: f.Description,
		fieldStatus:      string(f.Status),
		fieldCreatedAt:   f.CreatedAt,
		fieldUpdatedAt:   f.UpdatedAt,
	}
}

func (p Patch) document() docstore.Fields {
	out := docstore.Fields{}
	if p.Title != nil {
		out[fieldTitle] = *p.Title
	}
	if p.Description != nil {
		out[fieldDescription] = *p.Description
	}
	if p.Status != nil {
		out[fieldStatus] = string(*p.Status)
	}
	if p.UpdatedAt != nil {
		out[fieldUpdatedAt] = *p.UpdatedAt
	}
	return out
}

func taskFromDocument(d docstore.Document) Task {
	str := func(k string) string {
		s, _ := d.Fields[k].(string)
		return s
	}
	return Task{
		ID:          d.ID,
		Title:       str(fieldTitle),
		Description: str(fieldDescription),
		Status:      Status(str(fieldStatus)),
		CreatedAt:   str(fieldCreatedAt),
		UpdatedAt:   str(fieldUpdatedAt),
	}
}
