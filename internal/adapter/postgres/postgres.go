// Package postgres provides the PostgreSQL connection pools, migration
// runner, and store implementations for the registry, demo, and tenant
// databases.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	"github.com/chronotrack-io/chronotrack/internal/config"
)

//go:embed migrations/registry/*.sql migrations/demo/*.sql migrations/tenant/*.sql
var migrations embed.FS

// gooseMu serializes goose runs: goose keeps the base FS in package state,
// and tenant schema applies can run concurrently with each other.
var gooseMu sync.Mutex

// NewPool creates a pgxpool connection pool from a config.Postgres struct.
func NewPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// RunRegistryMigrations applies all pending migrations to the registry database.
func RunRegistryMigrations(ctx context.Context, dsn string) error {
	return runMigrations(ctx, dsn, "migrations/registry")
}

// RunDemoMigrations applies all pending migrations to the demo database.
func RunDemoMigrations(ctx context.Context, dsn string) error {
	return runMigrations(ctx, dsn, "migrations/demo")
}

// RunTenantMigrations applies the tenant schema to a freshly created tenant
// database. Safe to re-run: goose tracks applied versions per database.
func RunTenantMigrations(ctx context.Context, dsn string) error {
	return runMigrations(ctx, dsn, "migrations/tenant")
}

// runMigrations applies all pending goose migrations from the embedded SQL
// files under dir.
func runMigrations(ctx context.Context, dsn, dir string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations %s: %w", dir, err)
	}

	return nil
}

// MigrationVersion returns the current migration version of the database at dsn.
func MigrationVersion(ctx context.Context, dsn string) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("open db for version: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}

	return version, nil
}
