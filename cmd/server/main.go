// Package main is the entry point for the document numbering API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docnum/internal/domain/auth"
	"docnum/internal/domain/numbering"
	v1 "docnum/internal/infrastructure/http/v1"
	"docnum/internal/infrastructure/numerator"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/internal/infrastructure/storage/postgres/settings_repo"
	"docnum/pkg/logger"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Env == "development",
		Component:   "server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	zap.ReplaceGlobals(log.Desugar())
	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting docnum server", "version", version, "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
	}

	// --- Numbering ---
	txManager := postgres.NewTxManager(pool)
	numberingService := numbering.NewService(numbering.ServiceConfig{
		Repo: settings_repo.New(txManager),
		// allocations bypass the request transaction on purpose
		Store: numerator.NewPostgresStore(txManager.Pool()),
	})

	var idempotency *postgres.IdempotencyStore
	if cfg.IdempotencyTTL > 0 {
		idempotency = postgres.NewIdempotencyStore(txManager.Pool(), cfg.IdempotencyTTL)
		go cleanupIdempotency(logger.WithLogger(ctx, log.WithComponent("idempotency")), idempotency, time.Hour)
	}

	// --- JWT Service ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Numbering:    numberingService,
		DB:           pool,
		Version:      version,
	}
	if idempotency != nil {
		routerCfg.Idempotency = idempotency
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	st := pool.Stats()
	log.Infow("database pool at shutdown", "acquired", st.Acquired, "idle", st.Idle, "total", st.Total)
	log.Info("server stopped")
}

// cleanupIdempotency deletes expired idempotency records until ctx is done.
func cleanupIdempotency(ctx context.Context, store *postgres.IdempotencyStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug(ctx, "idempotency cleanup", "deleted", n)
			}
		}
	}
}
