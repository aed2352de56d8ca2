package tasks

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
)

func TestSave_CreateThenUpdate(t *testing.T) {
	repo := newTestRepo(docstore.NewMemory())
	ctx := asUser("alice")
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := Save(ctx, repo, "", Draft{Title: "  groceries  ", Description: " milk "}, created)
	if err != nil {
		t.Fatalf("save new: %v", err)
	}

	got, err := Find(ctx, repo, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "groceries" || got.Description != "milk" {
		t.Errorf("expected trimmed fields, got %+v", got)
	}
	if got.Status != StatusTodo {
		t.Errorf("expected default status todo, got %q", got.Status)
	}
	if got.CreatedAt != "2024-05-01T10:00:00.000Z" || got.UpdatedAt != got.CreatedAt {
		t.Errorf("unexpected timestamps: %+v", got)
	}

	edited := created.Add(time.Hour)
	if _, err := Save(ctx, repo, id, Draft{Title: "groceries", Status: StatusInProgress}, edited); err != nil {
		t.Fatalf("save existing: %v", err)
	}
	got, _ = Find(ctx, repo, id)
	if got.Status != StatusInProgress {
		t.Errorf("expected in-progress, got %q", got.Status)
	}
	if got.CreatedAt != "2024-05-01T10:00:00.000Z" {
		t.Errorf("createdAt must not change on update, got %q", got.CreatedAt)
	}
	if got.UpdatedAt != "2024-05-01T11:00:00.000Z" {
		t.Errorf("expected updatedAt bumped, got %q", got.UpdatedAt)
	}
}

func TestSave_Validation(t *testing.T) {
	repo := newTestRepo(docstore.NewMemory())
	ctx := asUser("alice")
	now := time.Now()

	cases := []struct {
		name string
		d    Draft
		want error
	}{
		{"blank title", Draft{Title: "   "}, ErrTitleRequired},
		{"long title", Draft{Title: strings.Repeat("a", MaxTitleLen+1)}, ErrTitleTooLong},
		{"bad status", Draft{Title: "ok", Status: "done"}, ErrInvalidStatus},
	}
	for _, tc := range cases {
		if _, err := Save(ctx, repo, "", tc.d, now); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if _, err := Save(ctx, repo, "", Draft{Title: strings.Repeat("é", MaxTitleLen)}, now); err != nil {
		t.Errorf("title of exactly %d characters should pass, got %v", MaxTitleLen, err)
	}
}

func TestSave_UpdateMissing(t *testing.T) {
	repo := newTestRepo(docstore.NewMemory())
	_, err := Save(asUser("alice"), repo, "nope", Draft{Title: "x"}, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFind_Missing(t *testing.T) {
	repo := newTestRepo(docstore.NewMemory())
	if _, err := Find(asUser("alice"), repo, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678_900_000, time.FixedZone("X", 2*3600))
	if got := Timestamp(ts); got != "2024-01-02T01:04:05.678Z" {
		t.Fatalf("Timestamp = %q", got)
	}
}
