package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optkit/optkit/internal/config"
)

// Connect opens a pgx connection pool sized from config and pings it once so
// a bad DATABASE_URL fails at boot rather than on the first request.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies any pending up-migrations from the migrations/ directory.
// Safe to run on every boot; migrations already recorded as applied are
// skipped.
func Migrate(databaseURL string) error {
	// The migrate pgx/v5 driver registers itself under the "pgx5" scheme,
	// while connection strings normally arrive as postgres:// or
	// postgresql://. Swap the scheme, leave the rest untouched.
	rest := strings.TrimPrefix(databaseURL, "postgresql://")
	rest = strings.TrimPrefix(rest, "postgres://")
	migrationURL := "pgx5://" + rest

	m, err := migrate.New("file://migrations", migrationURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
