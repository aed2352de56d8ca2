// Package account registers users and signs them in. Credentials live in
// credentials/{emailKey} and the public profile in User/{uid}, both in the
// document store shared with tasks.
package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/s1natex/task-tracker-GO/internal/docstore"
	"github.com/s1natex/task-tracker-GO/internal/signup"
	"github.com/s1natex/task-tracker-GO/internal/tasks"
)

const (
	profileCollection    = "User"
	credentialCollection = "credentials"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidEmail    = &signup.ValidationError{Message: "Invalid email address."}
	ErrPasswordTooLong = &signup.ValidationError{Message: "Password must be at most 72 bytes long"}
	errMissingFields   = &signup.ValidationError{Message: signup.MsgRequiredFields}
)

// TokenIssuer signs a session token for a user id.
type TokenIssuer interface {
	Issue(uid string) (string, error)
}

// Session is what a successful signup or login hands back.
type Session struct {
	UserID string `json:"uid"`
	Token  string `json:"token"`
}

// Profile is the public user document written at signup.
type Profile struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Service struct {
	store  docstore.Store
	hasher *PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store docstore.Store, hasher *PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup validates the form, stores credentials and profile, and signs the
// new user in. Validation failures are *signup.ValidationError.
func (s *Service) Signup(ctx context.Context, d signup.Data) (Session, error) {
	if err := signup.Validate(d).Err(); err != nil {
		return Session{}, err
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return Session{}, ErrInvalidEmail
	}
	if len(d.Password) > maxPasswordBytes {
		return Session{}, ErrPasswordTooLong
	}
	age, _ := signup.ParseAge(d.Age)

	hash, err := s.hasher.Hash(d.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.NewString()
	credPath := credentialPath(d.Email)
	err = s.store.Create(ctx, credPath, docstore.Fields{
		"uid":          uid,
		"email":        d.Email,
		"passwordHash": hash,
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, s.fail(ctx, "signup", uid, err)
	}

	ts := tasks.Timestamp(s.now())
	profilePath, err := docstore.DocPath(profileCollection, uid)
	if err == nil {
		err = s.store.Create(ctx, profilePath, docstore.Fields{
			"uid":       uid,
			"name":      d.Name,
			"email":     d.Email,
			"age":       age,
			"createdAt": ts,
			"updatedAt": ts,
		})
	}
	if err != nil {
		// free the email again so the user can retry
		if derr := s.store.Delete(ctx, credPath); derr != nil {
			err = errors.Join(err, derr)
		}
		return Session{}, s.fail(ctx, "signup", uid, err)
	}

	s.logger.InfoContext(ctx, "account_created", slog.String("user_id", uid))
	return s.session(uid)
}

// Login checks email and password. Unknown emails and wrong passwords are
// both ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, errMissingFields
	}

	doc, err := s.store.Get(ctx, credentialPath(email))
	if errors.Is(err, docstore.ErrNotFound) {
		s.hasher.burn(password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, s.fail(ctx, "login", "", err)
	}

	hash, _ := doc.Fields["passwordHash"].(string)
	uid, _ := doc.Fields["uid"].(string)
	if uid == "" || !s.hasher.Verify(password, hash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(uid)
}

// Profile loads the profile written at signup.
func (s *Service) Profile(ctx context.Context, uid string) (Profile, error) {
	path, err := docstore.DocPath(profileCollection, uid)
	if err != nil {
		return Profile{}, docstore.ErrNotFound
	}
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		return Profile{}, err
	}
	str := func(k string) string {
		v, _ := doc.Fields[k].(string)
		return v
	}
	return Profile{
		UID:       str("uid"),
		Name:      str("name"),
		Email:     str("email"),
		Age:       toInt(doc.Fields["age"]),
		CreatedAt: str("createdAt"),
		UpdatedAt: str("updatedAt"),
	}, nil
}

func (s *Service) session(uid string) (Session, error) {
	tok, err := s.tokens.Issue(uid)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{UserID: uid, Token: tok}, nil
}

func (s *Service) fail(ctx context.Context, op, uid string, err error) error {
	attrs := []any{slog.String("op", op), slog.String("error", err.Error())}
	if uid != "" {
		attrs = append(attrs, slog.String("user_id", uid))
	}
	s.logger.ErrorContext(ctx, "account_store_failed", attrs...)
	return fmt.Errorf("%s: %w", op, err)
}

// credentialPath keys credentials by a hash of the normalised email, which
// keeps the id a valid path segment and makes emails case-insensitive.
func credentialPath(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return credentialCollection + "/" + hex.EncodeToString(sum[:])
}

// toInt reads a number back from whichever type the backend decoded it as.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
