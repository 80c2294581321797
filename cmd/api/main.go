package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/balancebeacon/backend/internal/config"
	"github.com/balancebeacon/backend/internal/fx"
	"github.com/balancebeacon/backend/internal/handler"
	"github.com/balancebeacon/backend/internal/logging"
	"github.com/balancebeacon/backend/internal/middleware"
	"github.com/balancebeacon/backend/internal/notify"
	"github.com/balancebeacon/backend/internal/repository"
	"github.com/balancebeacon/backend/internal/service/share"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("balance-beacon-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	sharedExpenseRepo := repository.NewSharedExpenseRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	mailer := notify.NewMailerClient(cfg.MailerURL, time.Duration(cfg.MailerTimeoutS)*time.Second)
	rates := fx.NewRateService()

	shareService := share.NewService(
		sharedExpenseRepo,
		participantRepo,
		transactionRepo,
		userRepo,
		mailer,
		rates,
		db,
		share.Options{
			ReminderCooldown:      cfg.ReminderCooldown(),
			RequireFullPercentage: cfg.RequireFullPercentage,
		},
	)

	shareHandler := handler.NewShareHandler(shareService)
	healthHandler := handler.NewHealthHandler(db)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(h)
	}
	idempotent := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(middleware.Idempotency(idempotencyRepo)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/v1/shared-expenses", idempotent(shareHandler.Create))
	mux.Handle("DELETE /api/v1/shared-expenses/{id}", authed(shareHandler.Cancel))
	mux.Handle("POST /api/v1/participants/{id}/pay", authed(shareHandler.MarkPaid))
	mux.Handle("POST /api/v1/participants/{id}/decline", authed(shareHandler.Decline))
	mux.Handle("POST /api/v1/participants/{id}/remind", authed(shareHandler.Remind))
	mux.Handle("GET /api/v1/shared-expenses", authed(shareHandler.ListShared))
	mux.Handle("GET /api/v1/shared-with-me", authed(shareHandler.ListSharedWithMe))
	mux.Handle("GET /api/v1/settlement", authed(shareHandler.Settlement))

	var root http.Handler = mux
	root = middleware.Metrics(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)
	root = middleware.Recovery(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go cleanIdempotencyCache(idempotencyRepo)

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}

func cleanIdempotencyCache(repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := repo.CleanExpired(ctx)
		cancel()
		if err != nil {
			slog.Error("idempotency cache cleanup failed", "error", err)
			continue
		}
		if n > 0 {
			slog.Info("expired idempotency entries removed", "count", n)
		}
	}
}
