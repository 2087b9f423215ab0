package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/asktracker/asktracker-go/internal/config"
	"github.com/asktracker/asktracker-go/internal/crypto"
	"github.com/asktracker/asktracker-go/internal/handler"
	"github.com/asktracker/asktracker-go/internal/limiter"
	"github.com/asktracker/asktracker-go/internal/metrics"
	"github.com/asktracker/asktracker-go/internal/middleware"
	"github.com/asktracker/asktracker-go/internal/repository"
	"github.com/asktracker/asktracker-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	hasher, err := crypto.NewHasher(cfg.PasswordHasher)
	if err != nil {
		return err
	}

	codec, err := crypto.NewTokenCodec(crypto.TokenConfig{
		Secret:    cfg.TokenSecret,
		Algorithm: cfg.TokenAlgorithm,
		Issuer:    cfg.TokenIssuer,
	})
	if err != nil {
		return err
	}

	m := metrics.New()

	users, feedback, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	authOpts := []service.AuthOption{service.WithLogger(logger), service.WithMetrics(m)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		authOpts = append(authOpts, service.WithLoginLimiter(limiter.NewLoginLimiter(rdb, limiter.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Window:      cfg.LoginLockout,
		})))
		logger.Info("login limiter enabled", "redis_addr", cfg.RedisAddr)
	}

	authService := service.NewAuthService(users, hasher, codec, cfg.TokenTTL, authOpts...)
	feedbackService := service.NewFeedbackService(feedback)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:        handler.NewAuthHandler(authService, logger),
		Feedback:    handler.NewFeedbackHandler(feedbackService, logger),
		Gate:        middleware.NewAuthGate(codec, logger, m),
		RateLimit:   middleware.NewIPRateLimiter(ctx, 5, 10),
		Metrics:     m.Handler(),
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"storage", cfg.Storage,
			"algorithm", codec.Algorithm(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config) (service.UserStore, service.FeedbackStore, func(), error) {
	if cfg.Storage == "memory" {
		slog.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryUserRepository(), repository.NewMemoryFeedbackRepository(), func() {}, nil
	}

	db, err := repository.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			slog.Error("closing database", "error", err)
		}
	}
	return repository.NewUserRepository(db), repository.NewFeedbackRepository(db), closeDB, nil
}
