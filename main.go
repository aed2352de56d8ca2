package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/task-tracker-GO/internal/account"
	"github.com/s1natex/task-tracker-GO/internal/config"
	"github.com/s1natex/task-tracker-GO/internal/docstore"
	"github.com/s1natex/task-tracker-GO/internal/identity"
	"github.com/s1natex/task-tracker-GO/internal/middleware"
	"github.com/s1natex/task-tracker-GO/internal/signup"
	"github.com/s1natex/task-tracker-GO/internal/tasks"
	"github.com/s1natex/task-tracker-GO/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.TraceExporter, cfg.ServiceName)
	if err != nil {
		logger.Error("tracing_setup_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store_open_failed",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	tokens, err := identity.NewTokenManager(identity.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration,
	})
	if err != nil {
		logger.Error("token_manager_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo := tasks.NewDocRepo(
		docstore.Instrument(store),
		identity.ContextProvider{},
		tasks.WithLogger(logger),
		tasks.WithTimeout(cfg.StoreTimeout),
	)
	accounts := account.NewService(
		docstore.Instrument(store),
		account.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		account.WithLogger(logger),
	)
	limits := limiters{
		requests:   middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		authFailed: middleware.NewLimiter(cfg.AuthFailureRPS, cfg.AuthFailureBurst),
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(repo, accounts, tokens, limits, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.Addr),
			slog.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// drain HTTP first, then release the store, then flush spans
	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"server": func(ctx context.Context) error {
			logger.Info("server_shutdown")
			err := srv.Shutdown(ctx)
			if cerr := closeStore(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return errors.Join(err, shutdownTracing(ctx))
		},
	})
	os.Exit(<-wait)
}

// limiters are nil when disabled.
type limiters struct {
	requests   *middleware.Limiter
	authFailed *middleware.Limiter
}

// newRouter wires the health and metrics endpoints, the account, signup and
// task routes, and the middleware stack.
func newRouter(repo tasks.Repository, accounts *account.Service, verifier middleware.TokenVerifier, limits limiters, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)

	// Wraps everything that can answer 401: bad tokens, anonymous task
	// calls and failed logins all spend the caller IP's budget.
	r.Use(middleware.FailedAuthLimit(limits.authFailed))

	// Identity before rate limiting and logging so both can key on the user.
	r.Use(middleware.Authenticate(verifier, logger))
	r.Use(middleware.RateLimitMiddleware(limits.requests))
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	account.RegisterRoutes(r, accounts)
	signup.RegisterRoutes(r, logger)
	tasks.RegisterRoutes(r, repo, time.Now)

	return r
}

// openStore returns the configured document store and its release func.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		dsn, err := docstore.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := docstore.NewSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := s.ApplyMigrations(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreFirestore:
		s, err := docstore.NewFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return docstore.NewMemory(), func() error { return nil }, nil
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
