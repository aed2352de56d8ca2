package docstore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore adapts a Cloud Firestore client. Paths map one-to-one onto
// Firestore collection and document paths.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects with application default credentials. Setting
// FIRESTORE_EMULATOR_HOST points the client at a local emulator.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	c, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Firestore{client: c}, nil
}

func (f *Firestore) Close() error { return f.client.Close() }

func (f *Firestore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	ref, _, err := f.client.Collection(collection).Add(ctx, map[string]any(fields))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) Create(ctx context.Context, docPath string, fields Fields) error {
	if _, _, err := SplitDocPath(docPath); err != nil {
		return err
	}
	_, err := f.client.Doc(docPath).Create(ctx, map[string]any(fields))
	return mapFirestoreErr(err)
}

func (f *Firestore) Get(ctx context.Context, docPath string) (Document, error) {
	if _, _, err := SplitDocPath(docPath); err != nil {
		return Document{}, err
	}
	snap, err := f.client.Doc(docPath).Get(ctx)
	if err != nil {
		return Document{}, mapFirestoreErr(err)
	}
	return Document{ID: snap.Ref.ID, Fields: Fields(snap.Data())}, nil
}

func (f *Firestore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	snaps, err := f.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Document{ID: s.Ref.ID, Fields: Fields(s.Data())})
	}
	return out, nil
}

func (f *Firestore) Update(ctx context.Context, docPath string, fields Fields) error {
	if _, _, err := SplitDocPath(docPath); err != nil {
		return err
	}
	if len(fields) == 0 {
		// Firestore rejects empty updates; still honour the existence check
		_, err := f.client.Doc(docPath).Get(ctx)
		return mapFirestoreErr(err)
	}
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	_, err := f.client.Doc(docPath).Update(ctx, updates)
	return mapFirestoreErr(err)
}

func (f *Firestore) Delete(ctx context.Context, docPath string) error {
	if _, _, err := SplitDocPath(docPath); err != nil {
		return err
	}
	_, err := f.client.Doc(docPath).Delete(ctx)
	return err
}

func mapFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	}
	return err
}
