// Package main is the entry point for the development seed command.
// It applies migrations, then fills the database with the fixture tags, a
// test user and --count random cultural objects.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/pkordes/culture-map/backend/internal/config"
	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/repo"
	"github.com/pkordes/culture-map/backend/internal/seed"
	"github.com/pkordes/culture-map/backend/internal/service"
	"github.com/pkordes/culture-map/backend/migrations"
)

func main() {
	count := flag.Int("count", 50, "number of cultural objects to create")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadSeed()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		slog.Error("seed data can only run outside production", "app_env", cfg.Env)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, *count, logger); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, count int, logger *slog.Logger) error {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	if _, err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return err
	}
	db.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	fx, err := seed.LoadFixtures()
	if err != nil {
		return err
	}

	tags := service.NewTagService(repo.NewTagRepo(pool), service.WithLogger(logger))
	seeder := seed.New(tags, repo.NewUserRepo(pool), repo.NewObjectRepo(pool), fx,
		rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), logger)

	slog.Info("seeding", "count", count)
	stats, err := seeder.Run(ctx, count)
	if err != nil {
		return err
	}

	line := strings.Repeat("=", 50)
	fmt.Println(line)
	fmt.Printf("  Tags:      %d\n", stats.Tags)
	fmt.Printf("  Objects:   %d created\n", stats.ObjectsCreated)
	fmt.Printf("    - approved: %d\n", stats.ByStatus[domain.StatusApproved])
	fmt.Printf("    - pending:  %d\n", stats.ByStatus[domain.StatusPending])
	fmt.Printf("    - archived: %d\n", stats.ByStatus[domain.StatusArchived])
	if stats.UserCreated {
		fmt.Printf("  Test user: %s / %s\n", fx.User.Username, fx.User.Password)
	}
	fmt.Println(line)
	return nil
}
