// Package main is the entry point for the CultureMap API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/culture-map/backend/internal/config"
	"github.com/pkordes/culture-map/backend/internal/handler"
	"github.com/pkordes/culture-map/backend/internal/metrics"
	"github.com/pkordes/culture-map/backend/internal/middleware"
	"github.com/pkordes/culture-map/backend/internal/repo"
	"github.com/pkordes/culture-map/backend/internal/service"
	"github.com/pkordes/culture-map/backend/internal/token"
	"github.com/pkordes/culture-map/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	if cfg.MigrateOnStart {
		if err := migrate(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	// pgxpool.New does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	slog.Info("database connection established")

	// --- Refresh-token revocation ----------------------------------------
	revoked, closeRevoked, err := openRevocationList(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeRevoked()

	// --- Services ---------------------------------------------------------
	m := metrics.New()
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(m)}

	objects := repo.NewObjectRepo(pool)
	tags := repo.NewTagRepo(pool)
	users := repo.NewUserRepo(pool)
	issuer := token.NewIssuer(cfg.JWTSigningKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, nil)

	authSvc := service.NewAuthService(users, issuer, revoked, opts...)
	srv := handler.NewServer(
		service.NewCatalogService(objects, tags, opts...),
		service.NewTagService(tags, opts...),
		authSvc,
		service.NewExportService(objects, opts...),
		logger,
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Metrics →
	// Recoverer → CORS → body limit → auth.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewMetricsHandler(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(middleware.NewAuthHandler(authSvc, logger))

	r.Method(http.MethodGet, "/metrics", m.Handler())
	srv.Routes(r)

	// --- HTTP Server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: once ctx is cancelled by a signal, in-flight requests
	// get up to 15 seconds to complete.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// migrate applies pending migrations through database/sql, which goose needs.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	n, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", n)
	return nil
}

// openRevocationList connects to Redis when url is set, so every API instance
// shares one list of consumed refresh tokens. Without Redis the list lives in
// process memory and is lost on restart.
func openRevocationList(ctx context.Context, url string) (token.RevocationList, func(), error) {
	if url == "" {
		slog.Warn("REDIS_URL not set; refresh-token revocation is per-process")
		return token.NewMemoryRevocationList(nil), func() {}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Info("redis connection established")
	return token.NewRedisRevocationList(client), func() { client.Close() }, nil
}
