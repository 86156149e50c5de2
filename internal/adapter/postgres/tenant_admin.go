package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/tenantdb"
	"github.com/chronotrack-io/chronotrack/internal/port/tenantadmin"
)

// TenantAdmin implements tenantadmin.Admin against a server-level connection.
// The role behind adminDSN must have CREATEDB.
type TenantAdmin struct {
	pool     *pgxpool.Pool
	adminDSN string
}

// NewTenantAdmin creates a TenantAdmin. The pool must be connected to a
// maintenance database (not a tenant database), since CREATE DATABASE cannot
// run inside the database being managed.
func NewTenantAdmin(pool *pgxpool.Pool, adminDSN string) *TenantAdmin {
	return &TenantAdmin{pool: pool, adminDSN: adminDSN}
}

func (a *TenantAdmin) ListTenantDatabases(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT datname FROM pg_database
		WHERE datistemplate = false AND datname LIKE $1`,
		tenantdb.NamePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list tenant databases: %w", mapAdminError(err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		// LIKE is only a prefilter; the pattern decides membership.
		if tenantdb.ValidName(name) {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}

func (a *TenantAdmin) CreateDatabase(ctx context.Context, name string) (bool, error) {
	if !tenantdb.ValidName(name) {
		return false, fmt.Errorf("create database %q: %w", name, domain.ErrValidation)
	}

	// CREATE DATABASE does not support bind parameters.
	_, err := a.pool.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{name}.Sanitize()))
	if err != nil {
		if isDuplicateDatabase(err) {
			return false, nil
		}
		return false, fmt.Errorf("create database %s: %w", name, mapAdminError(err))
	}
	return true, nil
}

func (a *TenantAdmin) ApplySchema(ctx context.Context, name string) error {
	if !tenantdb.ValidName(name) {
		return fmt.Errorf("apply schema to %q: %w", name, domain.ErrValidation)
	}

	dsn, err := dsnForDatabase(a.adminDSN, name)
	if err != nil {
		return fmt.Errorf("apply schema to %s: %w", name, err)
	}

	if err := RunTenantMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("apply schema to %s: %w", name, mapAdminError(err))
	}
	return nil
}

func (a *TenantAdmin) BootstrapAdmin(ctx context.Context, name string, admin tenantadmin.BootstrapAdmin) error {
	if !tenantdb.ValidName(name) {
		return fmt.Errorf("bootstrap admin in %q: %w", name, domain.ErrValidation)
	}

	dsn, err := dsnForDatabase(a.adminDSN, name)
	if err != nil {
		return fmt.Errorf("bootstrap admin in %s: %w", name, err)
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("bootstrap admin in %s: %w", name, mapAdminError(err))
	}
	defer func() { _ = conn.Close(ctx) }()

	now := time.Now().UTC()
	userID := uuid.New().String()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap admin in %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Keyed on email so a re-run of a partial provisioning does not
	// duplicate the admin account.
	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'admin', true, $7, $7)
		ON CONFLICT (email) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id`,
		userID, admin.Email, admin.PasswordHash, admin.FirstName, admin.LastName, admin.Phone, now,
	).Scan(&userID)
	if err != nil {
		return fmt.Errorf("bootstrap admin user in %s: %w", name, mapAdminError(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO employees (id, user_id, hired_at, created_at, updated_at)
		VALUES ($1, $2, $3, $3, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID, now,
	)
	if err != nil {
		return fmt.Errorf("bootstrap admin employee in %s: %w", name, mapAdminError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bootstrap admin in %s: %w", name, err)
	}
	return nil
}

func (a *TenantAdmin) DropDatabase(ctx context.Context, name string) error {
	// The guard is the last line of defense against dropping the registry,
	// the demo database, or anything else outside the tenant namespace.
	if !tenantdb.ValidName(name) {
		return fmt.Errorf("drop database %q: refusing non-tenant name: %w", name, domain.ErrValidation)
	}

	// Open sessions block DROP DATABASE.
	_, err := a.pool.Exec(ctx, `
		SELECT pg_terminate_backend(pid) FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
	if err != nil {
		return fmt.Errorf("terminate sessions on %s: %w", name, mapAdminError(err))
	}

	_, err = a.pool.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, pgx.Identifier{name}.Sanitize()))
	if err != nil {
		return fmt.Errorf("drop database %s: %w", name, mapAdminError(err))
	}
	return nil
}

// dsnForDatabase rewrites a postgres URL DSN to point at the given database.
func dsnForDatabase(dsn, database string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	u.Path = "/" + database
	return u.String(), nil
}
