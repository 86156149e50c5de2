package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/port/cache"
	"github.com/chronotrack-io/chronotrack/internal/port/database"
)

// IdentityResolver turns a token subject into a normalized identity by
// consulting the registry and demo stores. It is strictly read-only: the
// same lookup never mutates either store.
//
// The source hint from the token picks which store to try first; a miss or
// an inactive row falls through to the other store. Callers never learn
// which store rejected them.
type IdentityResolver struct {
	registry database.RegistryStore
	demo     database.DemoStore
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// NewIdentityResolver creates an IdentityResolver. cache may be nil to
// disable caching.
func NewIdentityResolver(registry database.RegistryStore, demo database.DemoStore, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *IdentityResolver {
	return &IdentityResolver{
		registry: registry,
		demo:     demo,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Resolve looks up the principal with the given ID, trying the hinted store
// first. The returned identity is safe to expose to callers.
func (r *IdentityResolver) Resolve(ctx context.Context, id string, hint identity.Source) (*identity.Identity, error) {
	if id == "" {
		return nil, fmt.Errorf("empty principal id: %w", domain.ErrInvalidIdentity)
	}

	cacheKey := "identity:" + id
	if cached := r.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	ident, err := r.lookup(ctx, id, hint)
	if err != nil {
		return nil, err
	}

	r.toCache(ctx, cacheKey, ident)
	return ident, nil
}

// ResolveByEmail looks up a principal by email across both stores, registry
// first. Used by login, which has no source hint yet.
func (r *IdentityResolver) ResolveByEmail(ctx context.Context, email string) (*identity.Principal, identity.Source, error) {
	p, err := r.registry.GetPrincipalByEmail(ctx, email)
	if err == nil && p.Active {
		return p, identity.SourceRegistry, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("resolve by email: %w", err)
	}

	p, err = r.demo.GetPrincipalByEmail(ctx, email)
	if err == nil && p.Active {
		return p, identity.SourceDemo, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("resolve by email: %w", err)
	}

	return nil, "", domain.ErrInvalidIdentity
}

func (r *IdentityResolver) lookup(ctx context.Context, id string, hint identity.Source) (*identity.Identity, error) {
	order := []identity.Source{identity.SourceRegistry, identity.SourceDemo}
	if hint == identity.SourceDemo {
		order = []identity.Source{identity.SourceDemo, identity.SourceRegistry}
	}

	for _, src := range order {
		p, err := r.getFrom(ctx, src, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		if !p.Active {
			continue
		}
		return r.normalize(ctx, p, src)
	}

	// Deliberately uniform: the caller cannot tell a miss from an
	// inactive account, nor which store was consulted.
	return nil, domain.ErrInvalidIdentity
}

func (r *IdentityResolver) getFrom(ctx context.Context, src identity.Source, id string) (*identity.Principal, error) {
	if src == identity.SourceDemo {
		return r.demo.GetPrincipal(ctx, id)
	}
	return r.registry.GetPrincipal(ctx, id)
}

// normalize builds the outward identity. Org details only exist for registry
// principals; demo principals share the fixed demo environment.
func (r *IdentityResolver) normalize(ctx context.Context, p *identity.Principal, src identity.Source) (*identity.Identity, error) {
	first, last := identity.SplitName(p.Name)
	ident := &identity.Identity{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: first,
		LastName:  last,
		Role:      p.Role,
		Active:    p.Active,
		Source:    src,
	}

	if src == identity.SourceRegistry && p.OrgID != "" {
		org, err := r.registry.GetOrganization(ctx, p.OrgID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("resolve organization: %w", err)
			}
			r.log.Warn("principal references missing organization",
				"principal_id", p.ID, "org_id", p.OrgID)
		} else {
			ident.OrgID = org.ID
			ident.OrgName = org.Name
		}
	}

	return ident, nil
}

func (r *IdentityResolver) fromCache(ctx context.Context, key string) *identity.Identity {
	if r.cache == nil {
		return nil
	}
	data, found, err := r.cache.Get(ctx, key)
	if err != nil || !found {
		return nil
	}
	var ident identity.Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil
	}
	return &ident
}

func (r *IdentityResolver) toCache(ctx context.Context, key string, ident *identity.Identity) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(ident)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
		r.log.Debug("cache identity", "error", err)
	}
}

// Invalidate drops a cached identity, e.g. after a role change.
func (r *IdentityResolver) Invalidate(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, "identity:"+id); err != nil {
		r.log.Debug("invalidate identity cache", "error", err)
	}
}
