package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is malformed, badly signed or
	// issued by someone else.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// TokenConfig holds JWT configuration.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Duration time.Duration
}

// TokenManager issues and verifies HS256 tokens whose subject is the user id.
type TokenManager struct {
	config TokenConfig
}

func NewTokenManager(config TokenConfig) (*TokenManager, error) {
	if config.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if config.Duration <= 0 {
		config.Duration = time.Hour
	}
	return &TokenManager{config: config}, nil
}

// Issue signs a token for uid.
func (m *TokenManager) Issue(uid string) (string, error) {
	if uid == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    m.config.Issuer,
		Subject:   uid,
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}

// Verify checks the token and returns its subject.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(m.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
