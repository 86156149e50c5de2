package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
	"github.com/chronotrack-io/chronotrack/internal/port/tenantadmin"
)

// mockAdmin is an in-memory tenantadmin.Admin. Error hooks let tests inject
// failures at each lifecycle stage.
type mockAdmin struct {
	mu        sync.Mutex
	databases map[string]bool
	schemas   map[string]bool
	admins    map[string]tenantadmin.BootstrapAdmin

	listErr      error
	createErr    error
	schemaErr    error
	bootstrapErr error
	dropErr      error

	createCalls int
	listCalls   int
}

func newMockAdmin(existing ...string) *mockAdmin {
	m := &mockAdmin{
		databases: make(map[string]bool),
		schemas:   make(map[string]bool),
		admins:    make(map[string]tenantadmin.BootstrapAdmin),
	}
	for _, name := range existing {
		m.databases[name] = true
	}
	return m
}

func (m *mockAdmin) ListTenantDatabases(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var names []string
	for name := range m.databases {
		names = append(names, name)
	}
	return names, nil
}

func (m *mockAdmin) CreateDatabase(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return false, m.createErr
	}
	if m.databases[name] {
		return false, nil
	}
	m.databases[name] = true
	return true, nil
}

func (m *mockAdmin) ApplySchema(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.schemaErr != nil {
		return m.schemaErr
	}
	if !m.databases[name] {
		return fmt.Errorf("apply schema: database %s does not exist", name)
	}
	m.schemas[name] = true
	return nil
}

func (m *mockAdmin) BootstrapAdmin(_ context.Context, name string, admin tenantadmin.BootstrapAdmin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bootstrapErr != nil {
		return m.bootstrapErr
	}
	if !m.schemas[name] {
		return fmt.Errorf("bootstrap admin: schema missing in %s", name)
	}
	m.admins[name] = admin
	return nil
}

func (m *mockAdmin) DropDatabase(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropErr != nil {
		return m.dropErr
	}
	delete(m.databases, name)
	delete(m.schemas, name)
	delete(m.admins, name)
	return nil
}

// mockRegistry is an in-memory database.RegistryStore.
type mockRegistry struct {
	mu         sync.Mutex
	orgs       map[string]organization.Organization
	principals map[string]identity.Principal // keyed by lowercase email

	upsertErr      error
	upsertFailures int // fail this many upserts before succeeding
	createOrgErr   error
	joinCodeTaken  bool // every generated join code reads as taken
	joinCodeErr    error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		orgs:       make(map[string]organization.Organization),
		principals: make(map[string]identity.Principal),
	}
}

func (m *mockRegistry) CreateOrganization(_ context.Context, org *organization.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createOrgErr != nil {
		return m.createOrgErr
	}
	if _, ok := m.orgs[org.ID]; ok {
		return fmt.Errorf("create organization %s: %w", org.ID, domain.ErrConflict)
	}
	org.CreatedAt = time.Now().UTC()
	org.UpdatedAt = org.CreatedAt
	m.orgs[org.ID] = *org
	return nil
}

func (m *mockRegistry) GetOrganization(_ context.Context, id string) (*organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, fmt.Errorf("get organization %s: %w", id, domain.ErrNotFound)
	}
	return &org, nil
}

func (m *mockRegistry) ListOrganizations(_ context.Context) ([]organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orgs []organization.Organization
	for _, org := range m.orgs {
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func (m *mockRegistry) OrganizationIDExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orgs[id]
	return ok, nil
}

func (m *mockRegistry) JoinCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinCodeErr != nil {
		return false, m.joinCodeErr
	}
	if m.joinCodeTaken {
		return true, nil
	}
	for _, org := range m.orgs {
		if org.JoinCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRegistry) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.principals[strings.ToLower(email)]
	return ok, nil
}

func (m *mockRegistry) UpsertPrincipal(_ context.Context, p *identity.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertFailures > 0 {
		m.upsertFailures--
		return fmt.Errorf("transient registry failure")
	}
	if m.upsertErr != nil {
		return m.upsertErr
	}
	// Mirrors the registry constraint: an email belongs to one organization.
	if existing, ok := m.principals[strings.ToLower(p.Email)]; ok && existing.OrgID != p.OrgID {
		return fmt.Errorf("upsert principal %s: %w", p.Email, domain.ErrDuplicateEmail)
	}
	m.principals[strings.ToLower(p.Email)] = *p
	return nil
}

func (m *mockRegistry) GetPrincipal(_ context.Context, id string) (*identity.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.principals {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get principal %s: %w", id, domain.ErrNotFound)
}

func (m *mockRegistry) GetPrincipalByEmail(_ context.Context, email string) (*identity.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("get principal by email %s: %w", email, domain.ErrNotFound)
	}
	return &p, nil
}

// mockDemo is an in-memory database.DemoStore.
type mockDemo struct {
	mu         sync.Mutex
	principals map[string]identity.Principal // keyed by lowercase email
}

func newMockDemo() *mockDemo {
	return &mockDemo{principals: make(map[string]identity.Principal)}
}

func (m *mockDemo) GetPrincipal(_ context.Context, id string) (*identity.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.principals {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get demo principal %s: %w", id, domain.ErrNotFound)
}

func (m *mockDemo) GetPrincipalByEmail(_ context.Context, email string) (*identity.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("get demo principal by email %s: %w", email, domain.ErrNotFound)
	}
	return &p, nil
}

func (m *mockDemo) CountPrincipals(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.principals), nil
}

func (m *mockDemo) CreatePrincipal(_ context.Context, p *identity.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.principals[strings.ToLower(p.Email)]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	m.principals[strings.ToLower(p.Email)] = *p
	return nil
}

// mockQueue records published messages.
type mockQueue struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	subject string
	data    []byte
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, publishedMessage{subject, data})
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func (m *mockQueue) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subjects []string
	for _, msg := range m.messages {
		subjects = append(subjects, msg.subject)
	}
	return subjects
}

// memCache is a minimal in-memory cache.Cache (no TTL handling).
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
