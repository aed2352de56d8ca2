// Package config loads process settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
)

type Config struct {
	Addr            string
	LogLevel        string
	ShutdownTimeout time.Duration

	StoreDriver      string
	SQLitePath       string
	FirestoreProject string
	StoreTimeout     time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	BcryptCost  int

	RateLimitRPS   float64
	RateLimitBurst int

	// 401 budget per client IP
	AuthFailureRPS   float64
	AuthFailureBurst int

	TraceExporter string
	ServiceName   string
}

// Load reads files (default ".env") without overriding variables that are
// already set, then parses the environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses settings through getenv so tests need not touch the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	c := Config{
		Addr:            p.str("ADDR", ":8080"),
		LogLevel:        strings.ToLower(p.str("LOG_LEVEL", "info")),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),

		StoreDriver:      strings.ToLower(p.str("STORE_DRIVER", StoreMemory)),
		SQLitePath:       p.str("SQLITE_PATH", "data/tasks.db"),
		FirestoreProject: p.str("FIRESTORE_PROJECT_ID", ""),
		StoreTimeout:     p.duration("STORE_TIMEOUT", 10*time.Second),

		JWTSecret:   p.str("AUTH_JWT_SECRET", ""),
		JWTIssuer:   p.str("AUTH_JWT_ISSUER", "task-tracker"),
		JWTDuration: p.duration("AUTH_JWT_TTL", time.Hour),
		BcryptCost:  p.int("BCRYPT_COST", 12),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 0),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 10),

		AuthFailureRPS:   p.float("AUTH_FAILURE_RPS", 0.2),
		AuthFailureBurst: p.int("AUTH_FAILURE_BURST", 5),

		TraceExporter: strings.ToLower(p.str("TRACE_EXPORTER", "none")),
		ServiceName:   p.str("SERVICE_NAME", "task-tracker"),
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return c, c.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StoreFirestore:
		if c.FirestoreProject == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT_ID is required for the firestore driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	switch c.TraceExporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("TRACE_EXPORTER: unknown exporter %q", c.TraceExporter))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d is outside 4..31", c.BcryptCost))
	}
	if c.StoreTimeout < 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must not be negative"))
	}
	return errors.Join(errs...)
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}
