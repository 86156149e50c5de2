package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
	"github.com/chronotrack-io/chronotrack/internal/port/database"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
)

// TenantPinger checks connectivity to a tenant database.
type TenantPinger interface {
	Ping(ctx context.Context, name string) error
}

// OrganizationService serves reads over registered organizations and the
// operator-facing tenant lifecycle commands.
type OrganizationService struct {
	registry    database.RegistryStore
	provisioner *Provisioner
	pinger      TenantPinger
	queue       messagequeue.Queue
	log         *slog.Logger
}

// NewOrganizationService creates an OrganizationService. pinger and queue
// may be nil (admin CLI runs without them).
func NewOrganizationService(registry database.RegistryStore, provisioner *Provisioner, pinger TenantPinger, queue messagequeue.Queue, log *slog.Logger) *OrganizationService {
	return &OrganizationService{
		registry:    registry,
		provisioner: provisioner,
		pinger:      pinger,
		queue:       queue,
		log:         log,
	}
}

// Get returns an organization by ID.
func (s *OrganizationService) Get(ctx context.Context, id string) (*organization.Organization, error) {
	return s.registry.GetOrganization(ctx, id)
}

// List returns all registered organizations.
func (s *OrganizationService) List(ctx context.Context) ([]organization.Organization, error) {
	return s.registry.ListOrganizations(ctx)
}

// TenantHealth reports whether the organization's tenant database is
// reachable.
func (s *OrganizationService) TenantHealth(ctx context.Context, id string) error {
	org, err := s.registry.GetOrganization(ctx, id)
	if err != nil {
		return err
	}
	if s.pinger == nil {
		return nil
	}
	if err := s.pinger.Ping(ctx, org.DatabaseName); err != nil {
		return fmt.Errorf("tenant health %s: %w", org.ID, err)
	}
	return nil
}

// DropTenant removes a tenant database. The registry row, if any, is left in
// place for audit; operators delete it separately once they are sure.
func (s *OrganizationService) DropTenant(ctx context.Context, databaseName, operator string) error {
	if err := s.provisioner.Delete(ctx, databaseName); err != nil {
		return err
	}

	if s.queue != nil {
		payload, _ := json.Marshal(messagequeue.TenantDroppedPayload{
			DatabaseName: databaseName,
			Operator:     operator,
		})
		if err := s.queue.Publish(ctx, messagequeue.SubjectTenantDropped, payload); err != nil {
			s.log.Warn("publish tenant dropped event", "error", err)
		}
	}
	return nil
}

// Orphans returns tenant databases that exist on the server but are not
// referenced by any organization. These are leftovers of provisioning runs
// that failed after database creation; they are reported, never auto-dropped.
func (s *OrganizationService) Orphans(ctx context.Context) ([]string, error) {
	names, err := s.provisioner.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}

	orgs, err := s.registry.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool, len(orgs))
	for _, org := range orgs {
		referenced[org.DatabaseName] = true
	}

	var orphans []string
	for _, name := range names {
		if !referenced[name] {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
