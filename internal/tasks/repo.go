package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
)

// AuthProvider resolves the user the current call acts for.
type AuthProvider interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

type Repository interface {
	Create(ctx context.Context, f Fields) (string, error)
	List(ctx context.Context) ([]Task, error)
	Update(ctx context.Context, id string, p Patch) error
	Delete(ctx context.Context, id string) error
}

// DocRepo keeps each user's tasks in the collection users/{uid}/tasks.
type DocRepo struct {
	store   docstore.Store
	auth    AuthProvider
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*DocRepo)

// WithTimeout bounds every store call. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(r *DocRepo) { r.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *DocRepo) { r.logger = l }
}

func NewDocRepo(store docstore.Store, auth AuthProvider, opts ...Option) *DocRepo {
	r := &DocRepo{
		store:  store,
		auth:   auth,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *DocRepo) Create(ctx context.Context, f Fields) (string, error) {
	coll, uid, err := r.collection(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.store.Add(ctx, coll, f.document())
	if err != nil {
		return "", r.fail(ctx, "create", uid, "", err)
	}
	return id, nil
}

func (r *DocRepo) List(ctx context.Context) ([]Task, error) {
	coll, uid, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	docs, err := r.store.List(ctx, coll)
	if err != nil {
		return nil, r.fail(ctx, "list", uid, "", err)
	}
	out := make([]Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, taskFromDocument(d))
	}
	return out, nil
}

func (r *DocRepo) Update(ctx context.Context, id string, p Patch) error {
	path, uid, err := r.docPath(ctx, id)
	if err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.Update(ctx, path, p.document()); err != nil {
		return r.fail(ctx, "update", uid, id, err)
	}
	return nil
}

// Delete removes the task. A missing id is not an error.
func (r *DocRepo) Delete(ctx context.Context, id string) error {
	path, uid, err := r.docPath(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.Delete(ctx, path); err != nil {
		return r.fail(ctx, "delete", uid, id, err)
	}
	return nil
}

func (r *DocRepo) collection(ctx context.Context) (coll, uid string, err error) {
	uid, ok := r.auth.CurrentUserID(ctx)
	if !ok {
		return "", "", ErrUnauthenticated
	}
	coll, err = docstore.CollectionPath("users", uid, "tasks")
	if err != nil {
		// a user id that cannot form a path can never own documents
		return "", "", ErrUnauthenticated
	}
	return coll, uid, nil
}

func (r *DocRepo) docPath(ctx context.Context, id string) (path, uid string, err error) {
	if _, uid, err = r.collection(ctx); err != nil {
		return "", "", err
	}
	path, err = docstore.DocPath("users", uid, "tasks", id)
	if err != nil {
		// ids with slashes or empty ids cannot exist in the collection
		return "", "", ErrNotFound
	}
	return path, uid, nil
}

func (r *DocRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// fail logs a store failure and converts it into the repository's taxonomy.
func (r *DocRepo) fail(ctx context.Context, op, uid, id string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	attrs := []any{
		slog.String("op", op),
		slog.String("user_id", uid),
		slog.String("error", err.Error()),
	}
	if id != "" {
		attrs = append(attrs, slog.String("task_id", id))
	}
	r.logger.ErrorContext(ctx, "task_store_failed", attrs...)
	return &StoreError{Op: op, Err: err}
}
