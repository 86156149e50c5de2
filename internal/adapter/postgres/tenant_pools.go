package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/tenantdb"
)

// TenantPools manages lazily opened connection pools, one per tenant
// database. Concurrent first requests for the same tenant are collapsed into
// a single pool creation.
type TenantPools struct {
	adminDSN string
	maxConns int32

	mu    sync.RWMutex
	pools map[string]*pgxpool.Pool
	group singleflight.Group
}

// NewTenantPools creates an empty pool manager. adminDSN supplies host and
// credentials; only the database name changes per tenant.
func NewTenantPools(adminDSN string, maxConns int32) *TenantPools {
	return &TenantPools{
		adminDSN: adminDSN,
		maxConns: maxConns,
		pools:    make(map[string]*pgxpool.Pool),
	}
}

// Get returns the pool for the named tenant database, opening it on first
// use.
func (p *TenantPools) Get(ctx context.Context, name string) (*pgxpool.Pool, error) {
	if !tenantdb.ValidName(name) {
		return nil, fmt.Errorf("tenant pool for %q: %w", name, domain.ErrValidation)
	}

	p.mu.RLock()
	pool, ok := p.pools[name]
	p.mu.RUnlock()
	if ok {
		return pool, nil
	}

	v, err, _ := p.group.Do(name, func() (any, error) {
		p.mu.RLock()
		pool, ok := p.pools[name]
		p.mu.RUnlock()
		if ok {
			return pool, nil
		}

		dsn, err := dsnForDatabase(p.adminDSN, name)
		if err != nil {
			return nil, err
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse tenant dsn: %w", err)
		}
		poolCfg.MaxConns = p.maxConns

		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("open tenant pool %s: %w", name, mapPgError(err))
		}

		p.mu.Lock()
		p.pools[name] = pool
		p.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pgxpool.Pool), nil
}

// Ping checks connectivity to the named tenant database.
func (p *TenantPools) Ping(ctx context.Context, name string) error {
	pool, err := p.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping tenant %s: %w", name, mapPgError(err))
	}
	return nil
}

// Evict closes and removes the pool for the named tenant database, if open.
// Must be called before the database is dropped.
func (p *TenantPools) Evict(name string) {
	p.mu.Lock()
	pool, ok := p.pools[name]
	if ok {
		delete(p.pools, name)
	}
	p.mu.Unlock()

	if ok {
		pool.Close()
	}
}

// Close closes every open tenant pool.
func (p *TenantPools) Close() {
	p.mu.Lock()
	pools := p.pools
	p.pools = make(map[string]*pgxpool.Pool)
	p.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}
