package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chronotrack-io/chronotrack/internal/config"
	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/tenantdb"
	"github.com/chronotrack-io/chronotrack/internal/port/tenantadmin"
	"github.com/chronotrack-io/chronotrack/internal/resilience"
)

// PoolEvictor closes cached connection pools for a tenant database before it
// is dropped.
type PoolEvictor interface {
	Evict(name string)
}

// Provisioner walks a tenant database through its lifecycle: allocate a name,
// create the database, apply the schema, bootstrap the admin account.
type Provisioner struct {
	admin   tenantadmin.Admin
	pools   PoolEvictor
	breaker *resilience.Breaker
	cfg     config.Provision
	log     *slog.Logger
}

// NewProvisioner creates a Provisioner. pools may be nil when no per-tenant
// pools are kept (admin CLI).
func NewProvisioner(admin tenantadmin.Admin, pools PoolEvictor, breaker *resilience.Breaker, cfg config.Provision, log *slog.Logger) *Provisioner {
	return &Provisioner{
		admin:   admin,
		pools:   pools,
		breaker: breaker,
		cfg:     cfg,
		log:     log,
	}
}

// Provision allocates a fresh tenant database and brings it to the ready
// state. Name collisions with concurrent provisions are detected by the
// database create itself: losing a race is not an error, the allocator simply
// rescans and tries the next ordinal. All other failures abort and surface
// the state that was reached, so operators can see how far the provisioning
// got.
func (p *Provisioner) Provision(ctx context.Context, admin tenantadmin.BootstrapAdmin) (tenantdb.Result, error) {
	res := tenantdb.Result{State: tenantdb.StateAllocated}

	for attempt := 1; ; attempt++ {
		names, err := p.listDatabases(ctx)
		if err != nil {
			return res, fmt.Errorf("scan tenant databases: %w", err)
		}

		res.Ordinal = tenantdb.NextOrdinal(names)
		res.DatabaseName = tenantdb.Name(res.Ordinal)

		created, err := p.createDatabase(ctx, res.DatabaseName)
		if err != nil {
			res.State = tenantdb.StateFailed
			return res, fmt.Errorf("create %s: %w", res.DatabaseName, err)
		}
		if created {
			break
		}

		// Another provision won the race for this ordinal.
		if attempt >= p.cfg.AllocateRetries {
			res.State = tenantdb.StateFailed
			return res, fmt.Errorf("allocate tenant database after %d attempts: %w",
				attempt, domain.ErrAllocationExhausted)
		}
		p.log.Warn("tenant database name taken, reallocating",
			"database", res.DatabaseName, "attempt", attempt)
	}
	res.State = tenantdb.StateDatabaseCreated

	if err := p.applySchema(ctx, res.DatabaseName); err != nil {
		res.State = tenantdb.StateFailed
		return res, fmt.Errorf("apply schema to %s: %w", res.DatabaseName, err)
	}
	res.State = tenantdb.StateSchemaApplied

	if err := p.bootstrapAdmin(ctx, res.DatabaseName, admin); err != nil {
		res.State = tenantdb.StateFailed
		return res, fmt.Errorf("bootstrap admin in %s: %w", res.DatabaseName, err)
	}
	res.State = tenantdb.StateAdminBootstrapped

	res.State = tenantdb.StateReady
	p.log.Info("tenant database provisioned",
		"database", res.DatabaseName, "ordinal", res.Ordinal)
	return res, nil
}

// Resume re-runs the idempotent tail of provisioning against an existing
// tenant database: create (no-op if present), schema, admin bootstrap.
func (p *Provisioner) Resume(ctx context.Context, name string, admin tenantadmin.BootstrapAdmin) (tenantdb.Result, error) {
	ordinal, ok := tenantdb.ParseOrdinal(name)
	if !ok {
		return tenantdb.Result{}, fmt.Errorf("resume %q: %w", name, domain.ErrValidation)
	}
	res := tenantdb.Result{DatabaseName: name, Ordinal: ordinal, State: tenantdb.StateAllocated}

	if _, err := p.createDatabase(ctx, name); err != nil {
		res.State = tenantdb.StateFailed
		return res, fmt.Errorf("create %s: %w", name, err)
	}
	res.State = tenantdb.StateDatabaseCreated

	if err := p.applySchema(ctx, name); err != nil {
		res.State = tenantdb.StateFailed
		return res, fmt.Errorf("apply schema to %s: %w", name, err)
	}
	res.State = tenantdb.StateSchemaApplied

	if err := p.bootstrapAdmin(ctx, name, admin); err != nil {
		res.State = tenantdb.StateFailed
		return res, fmt.Errorf("bootstrap admin in %s: %w", name, err)
	}
	res.State = tenantdb.StateReady
	return res, nil
}

// Delete drops a tenant database. Any cached pools are evicted first so no
// open sessions keep the drop blocked.
func (p *Provisioner) Delete(ctx context.Context, name string) error {
	if !tenantdb.ValidName(name) {
		return fmt.Errorf("delete %q: %w", name, domain.ErrValidation)
	}
	if p.pools != nil {
		p.pools.Evict(name)
	}

	err := p.breaker.Execute(func() error {
		return p.admin.DropDatabase(ctx, name)
	})
	if err != nil {
		return p.unavailable(err)
	}
	p.log.Info("tenant database dropped", "database", name)
	return nil
}

// ListDatabases returns all tenant databases on the server, for operator
// tooling and reconciliation.
func (p *Provisioner) ListDatabases(ctx context.Context) ([]string, error) {
	return p.listDatabases(ctx)
}

func (p *Provisioner) listDatabases(ctx context.Context) ([]string, error) {
	var names []string
	err := p.breaker.Execute(func() error {
		var err error
		names, err = p.admin.ListTenantDatabases(ctx)
		return err
	})
	if err != nil {
		return nil, p.unavailable(err)
	}
	return names, nil
}

func (p *Provisioner) createDatabase(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CreateTimeout)
	defer cancel()

	var created bool
	err := p.breaker.Execute(func() error {
		var err error
		created, err = p.admin.CreateDatabase(ctx, name)
		return err
	})
	if err != nil {
		return false, p.unavailable(err)
	}
	return created, nil
}

func (p *Provisioner) applySchema(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SchemaTimeout)
	defer cancel()

	err := p.breaker.Execute(func() error {
		return p.admin.ApplySchema(ctx, name)
	})
	if err != nil {
		return p.unavailable(fmt.Errorf("%w: %w", domain.ErrSchemaApplication, err))
	}
	return nil
}

func (p *Provisioner) bootstrapAdmin(ctx context.Context, name string, admin tenantadmin.BootstrapAdmin) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.BootstrapTimeout)
	defer cancel()

	err := p.breaker.Execute(func() error {
		return p.admin.BootstrapAdmin(ctx, name, admin)
	})
	if err != nil {
		return p.unavailable(fmt.Errorf("%w: %w", domain.ErrAdminBootstrap, err))
	}
	return nil
}

// unavailable folds an open circuit into the provisioning-unavailable
// sentinel so callers map it to 503.
func (p *Provisioner) unavailable(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", domain.ErrProvisioningUnavailable, err)
	}
	return err
}
