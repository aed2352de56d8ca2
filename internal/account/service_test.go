package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
	"github.com/s1natex/task-tracker-GO/internal/identity"
	"github.com/s1natex/task-tracker-GO/internal/signup"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store docstore.Store) (*Service, *identity.TokenManager) {
	t.Helper()
	tm, err := identity.NewTokenManager(identity.TokenConfig{Secret: "test-secret", Issuer: "test"})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(store, NewPasswordHasher(bcrypt.MinCost), tm,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logger),
	)
	return svc, tm
}

func validForm() signup.Data {
	return signup.Data{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Age:             "36",
	}
}

func TestSignup_CreatesProfileAndSession(t *testing.T) {
	store := docstore.NewMemory()
	svc, tm := newTestService(t, store)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, validForm())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess.UserID == "" {
		t.Fatalf("expected a user id")
	}
	if uid, err := tm.Verify(sess.Token); err != nil || uid != sess.UserID {
		t.Fatalf("token does not verify to the new user: %q, %v", uid, err)
	}

	p, err := svc.Profile(ctx, sess.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	want := Profile{
		UID:       sess.UserID,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Age:       36,
		CreatedAt: "2024-05-01T10:00:00.000Z",
		UpdatedAt: "2024-05-01T10:00:00.000Z",
	}
	if p != want {
		t.Errorf("expected %+v, got %+v", want, p)
	}

	// the age is stored as a number, not the submitted string
	doc, _ := store.Get(ctx, "User/"+sess.UserID)
	if _, ok := doc.Fields["age"].(int); !ok {
		t.Errorf("age should be numeric, got %T", doc.Fields["age"])
	}
	if _, ok := doc.Fields["passwordHash"]; ok {
		t.Errorf("profile must not carry the password hash")
	}

	cred, err := store.Get(ctx, credentialPath("ada@example.com"))
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if h, _ := cred.Fields["passwordHash"].(string); h == "" || h == "secret1" {
		t.Errorf("password must be stored hashed, got %q", h)
	}
}

func TestSignup_ValidationFirst(t *testing.T) {
	cases := []struct {
		name string
		edit func(*signup.Data)
		want string
	}{
		{"missing name", func(d *signup.Data) { d.Name = "" }, signup.MsgRequiredFields},
		{"young", func(d *signup.Data) { d.Age = "12" }, signup.MsgInvalidAge},
		{"mismatch", func(d *signup.Data) { d.ConfirmPassword = "secret2" }, signup.MsgPasswordMismatch},
		{"bad email", func(d *signup.Data) { d.Email = "not-an-email" }, ErrInvalidEmail.Message},
		{"long password", func(d *signup.Data) {
			d.Password = strings.Repeat("x", 73)
			d.ConfirmPassword = d.Password
		}, ErrPasswordTooLong.Message},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingStore{Store: docstore.NewMemory()}
			svc, _ := newTestService(t, store)
			d := validForm()
			tc.edit(&d)

			_, err := svc.Signup(context.Background(), d)
			var vErr *signup.ValidationError
			if !errors.As(err, &vErr) || vErr.Message != tc.want {
				t.Fatalf("expected validation error %q, got %v", tc.want, err)
			}
			if store.writes != 0 {
				t.Errorf("rejected signup wrote %d documents", store.writes)
			}
		})
	}
}

func TestSignup_EmailTakenIgnoresCase(t *testing.T) {
	svc, _ := newTestService(t, docstore.NewMemory())
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validForm()); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	d := validForm()
	d.Email = " ADA@example.com"
	if _, err := svc.Signup(ctx, d); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignup_ProfileFailureReleasesEmail(t *testing.T) {
	store := &recordingStore{Store: docstore.NewMemory(), failPrefix: "User/"}
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validForm()); err == nil {
		t.Fatal("expected profile write failure")
	}
	if _, err := store.Get(ctx, credentialPath("ada@example.com")); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("credentials should be rolled back, got %v", err)
	}

	store.failPrefix = ""
	if _, err := svc.Signup(ctx, validForm()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, tm := newTestService(t, docstore.NewMemory())
	ctx := context.Background()

	created, err := svc.Signup(ctx, validForm())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	sess, err := svc.Login(ctx, "Ada@Example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.UserID != created.UserID {
		t.Errorf("login resolved %q, signup created %q", sess.UserID, created.UserID)
	}
	if uid, err := tm.Verify(sess.Token); err != nil || uid != created.UserID {
		t.Errorf("login token invalid: %q, %v", uid, err)
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	var vErr *signup.ValidationError
	if _, err := svc.Login(ctx, "", "secret1"); !errors.As(err, &vErr) || vErr.Message != signup.MsgRequiredFields {
		t.Errorf("empty email: expected required-fields error, got %v", err)
	}
}

func TestLogin_StoreFailure(t *testing.T) {
	boom := errors.New("boom")
	store := &recordingStore{Store: docstore.NewMemory(), getErr: boom}
	svc, _ := newTestService(t, store)

	_, err := svc.Login(context.Background(), "ada@example.com", "secret1")
	if !errors.Is(err, boom) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failure must surface as itself, got %v", err)
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	if h := NewPasswordHasher(99); h.cost != DefaultBcryptCost {
		t.Errorf("expected default cost, got %d", h.cost)
	}
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !h.Verify("secret1", hash) || h.Verify("secret2", hash) {
		t.Errorf("verify disagrees with hash")
	}
}

// recordingStore counts keyed writes and can fail them by path prefix.
type recordingStore struct {
	docstore.Store
	writes     int
	failPrefix string
	getErr     error
}

func (s *recordingStore) Create(ctx context.Context, p string, f docstore.Fields) error {
	s.writes++
	if s.failPrefix != "" && strings.HasPrefix(p, s.failPrefix) {
		return errors.New("write refused")
	}
	return s.Store.Create(ctx, p, f)
}

func (s *recordingStore) Get(ctx context.Context, p string) (docstore.Document, error) {
	if s.getErr != nil {
		return docstore.Document{}, s.getErr
	}
	return s.Store.Get(ctx, p)
}
