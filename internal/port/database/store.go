// Package database defines the port interfaces for the registry and demo
// identity stores.
package database

import (
	"context"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
)

// RegistryStore is the shared control-plane database: one row per registered
// organization plus one row per registry-visible principal.
type RegistryStore interface {
	// Organizations
	CreateOrganization(ctx context.Context, org *organization.Organization) error
	GetOrganization(ctx context.Context, id string) (*organization.Organization, error)
	ListOrganizations(ctx context.Context) ([]organization.Organization, error)
	OrganizationIDExists(ctx context.Context, id string) (bool, error)
	JoinCodeExists(ctx context.Context, code string) (bool, error)

	// Principals
	EmailExists(ctx context.Context, email string) (bool, error)
	// UpsertPrincipal inserts or updates a principal keyed by email. It is
	// idempotent so the registration orchestrator can retry the final write
	// without duplicating rows.
	UpsertPrincipal(ctx context.Context, p *identity.Principal) error
	GetPrincipal(ctx context.Context, id string) (*identity.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*identity.Principal, error)
}

// DemoStore is the fixed shared database of demo accounts. It is read-mostly:
// the only write path is the startup seeder.
type DemoStore interface {
	GetPrincipal(ctx context.Context, id string) (*identity.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*identity.Principal, error)
	CountPrincipals(ctx context.Context) (int, error)
	CreatePrincipal(ctx context.Context, p *identity.Principal) error
}
