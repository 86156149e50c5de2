package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
)

// DemoStore implements database.DemoStore against the shared demo database.
// Demo principals carry no org or tenant database of their own.
type DemoStore struct {
	pool *pgxpool.Pool
}

// NewDemoStore creates a DemoStore backed by the given connection pool.
func NewDemoStore(pool *pgxpool.Pool) *DemoStore {
	return &DemoStore{pool: pool}
}

const demoColumns = `id, email, name, password_hash, role, active, created_at, updated_at`

func (s *DemoStore) GetPrincipal(ctx context.Context, id string) (*identity.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+demoColumns+` FROM demo_accounts WHERE id = $1`, id)

	p, err := scanDemoPrincipal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get demo principal %s", id)
	}
	return p, nil
}

func (s *DemoStore) GetPrincipalByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+demoColumns+` FROM demo_accounts WHERE lower(email) = lower($1)`, email)

	p, err := scanDemoPrincipal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get demo principal by email %s", email)
	}
	return p, nil
}

func (s *DemoStore) CountPrincipals(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM demo_accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count demo principals: %w", err)
	}
	return n, nil
}

func (s *DemoStore) CreatePrincipal(ctx context.Context, p *identity.Principal) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO demo_accounts (`+demoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING`,
		p.ID, p.Email, p.Name, p.PasswordHash, p.Role, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create demo principal %s: %w", p.Email, mapPgError(err))
	}
	return nil
}

func scanDemoPrincipal(row scannable) (*identity.Principal, error) {
	var p identity.Principal
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
