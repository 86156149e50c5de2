package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
)

// RegistryStore implements database.RegistryStore against the registry database.
type RegistryStore struct {
	pool *pgxpool.Pool
}

// NewRegistryStore creates a RegistryStore backed by the given connection pool.
func NewRegistryStore(pool *pgxpool.Pool) *RegistryStore {
	return &RegistryStore{pool: pool}
}

// --- Organizations ---

const orgColumns = `id, name, email, phone, address, join_code, database_name, license_plan, license_seats, created_at, updated_at`

func (s *RegistryStore) CreateOrganization(ctx context.Context, org *organization.Organization) error {
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (`+orgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		org.ID, org.Name, org.Email, org.Phone, org.Address, org.JoinCode,
		org.DatabaseName, org.LicensePlan, org.LicenseSeats, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create organization %s: %w", org.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create organization: %w", mapPgError(err))
	}
	return nil
}

func (s *RegistryStore) GetOrganization(ctx context.Context, id string) (*organization.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)

	org, err := scanOrganization(row)
	if err != nil {
		return nil, notFoundWrap(err, "get organization %s", id)
	}
	return org, nil
}

func (s *RegistryStore) ListOrganizations(ctx context.Context) ([]organization.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orgColumns+` FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []organization.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	return orgs, rows.Err()
}

func (s *RegistryStore) OrganizationIDExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("organization id exists: %w", err)
	}
	return exists, nil
}

func (s *RegistryStore) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE join_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("join code exists: %w", err)
	}
	return exists, nil
}

func scanOrganization(row scannable) (*organization.Organization, error) {
	var org organization.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Email, &org.Phone, &org.Address,
		&org.JoinCode, &org.DatabaseName, &org.LicensePlan, &org.LicenseSeats,
		&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// --- Principals ---

const principalColumns = `id, email, name, password_hash, role, org_id, database_name, active, created_at, updated_at`

func (s *RegistryStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_principals WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return exists, nil
}

func (s *RegistryStore) UpsertPrincipal(ctx context.Context, p *identity.Principal) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	// The upsert is keyed on email AND organization: a retry of the same
	// registration overwrites its own row, but an email already owned by a
	// different organization must never be silently repointed.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO registry_principals (`+principalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			database_name = EXCLUDED.database_name,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		WHERE registry_principals.org_id = EXCLUDED.org_id`,
		p.ID, p.Email, p.Name, p.PasswordHash, p.Role, p.OrgID,
		p.DatabaseName, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert principal %s: %w", p.Email, mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert principal %s: email belongs to another organization: %w",
			p.Email, domain.ErrDuplicateEmail)
	}
	return nil
}

func (s *RegistryStore) GetPrincipal(ctx context.Context, id string) (*identity.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+` FROM registry_principals WHERE id = $1`, id)

	p, err := scanPrincipal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get principal %s", id)
	}
	return p, nil
}

func (s *RegistryStore) GetPrincipalByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+` FROM registry_principals WHERE lower(email) = lower($1)`, email)

	p, err := scanPrincipal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get principal by email %s", email)
	}
	return p, nil
}

func scanPrincipal(row scannable) (*identity.Principal, error) {
	var p identity.Principal
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role,
		&p.OrgID, &p.DatabaseName, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
