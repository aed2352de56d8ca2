// Package docstore is a minimal hierarchical document store: collections of
// schema-less documents addressed by slash-separated paths such as
// "users/{uid}/tasks" and "users/{uid}/tasks/{id}".
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid document path")
)

// Fields is the body of a document.
type Fields map[string]any

// Document is a stored document and its store-assigned id.
type Document struct {
	ID     string
	Fields Fields
}

// Store is implemented by every backend.
//
// Add assigns the id; Create writes under a caller-chosen path and returns
// ErrAlreadyExists when it is taken. Get and Update return ErrNotFound for a
// missing document; Update merges. Delete of a missing document succeeds.
type Store interface {
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Create(ctx context.Context, docPath string, fields Fields) error
	Get(ctx context.Context, docPath string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Update(ctx context.Context, docPath string, fields Fields) error
	Delete(ctx context.Context, docPath string) error
}

// CollectionPath joins segments into a collection path (odd segment count).
func CollectionPath(segments ...string) (string, error) {
	if len(segments)%2 != 1 {
		return "", fmt.Errorf("%w: collection needs an odd number of segments, got %d", ErrInvalidPath, len(segments))
	}
	return join(segments)
}

// DocPath joins segments into a document path (even segment count).
func DocPath(segments ...string) (string, error) {
	if len(segments) == 0 || len(segments)%2 != 0 {
		return "", fmt.Errorf("%w: document needs an even number of segments, got %d", ErrInvalidPath, len(segments))
	}
	return join(segments)
}

func join(segments []string) (string, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: bad segment %q", ErrInvalidPath, s)
		}
	}
	return strings.Join(segments, "/"), nil
}

// SplitDocPath returns the parent collection and the id of a document path.
func SplitDocPath(docPath string) (collection, id string, err error) {
	segs := strings.Split(docPath, "/")
	if _, err := DocPath(segs...); err != nil {
		return "", "", err
	}
	i := strings.LastIndex(docPath, "/")
	return docPath[:i], docPath[i+1:], nil
}

func checkCollection(collection string) error {
	_, err := CollectionPath(strings.Split(collection, "/")...)
	return err
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
