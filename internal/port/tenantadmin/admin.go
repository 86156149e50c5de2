// Package tenantadmin defines the port for privileged tenant database
// lifecycle operations. The implementation holds a server-level connection
// (CREATEDB role) and is the only component allowed to create or drop
// databases.
package tenantadmin

import "context"

// BootstrapAdmin is the initial administrator account written into a freshly
// provisioned tenant database.
type BootstrapAdmin struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
}

// Admin performs server-level operations against the PostgreSQL instance.
type Admin interface {
	// ListTenantDatabases returns every database name on the server that
	// follows the tenant naming convention.
	ListTenantDatabases(ctx context.Context) ([]string, error)

	// CreateDatabase creates the named database. If the database already
	// exists it returns (false, nil): callers re-running a partial
	// provisioning treat that as success, while the allocation loop treats
	// it as a losing race and retries with a fresh ordinal.
	CreateDatabase(ctx context.Context, name string) (created bool, err error)

	// ApplySchema runs the tenant schema migrations against the named
	// database. Safe to call more than once.
	ApplySchema(ctx context.Context, name string) error

	// BootstrapAdmin writes the initial admin account into the named tenant
	// database. Idempotent on the admin's email.
	BootstrapAdmin(ctx context.Context, name string, admin BootstrapAdmin) error

	// DropDatabase terminates open sessions and drops the named database.
	// It refuses any name that does not match the tenant naming convention.
	DropDatabase(ctx context.Context, name string) error
}
