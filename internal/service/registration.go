package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chronotrack-io/chronotrack/internal/config"
	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
	"github.com/chronotrack-io/chronotrack/internal/port/database"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
	"github.com/chronotrack-io/chronotrack/internal/port/tenantadmin"
)

// codeAlphabet excludes characters that read ambiguously on paper (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// joinCodeLength is the length of the code employees type to join an
// organization.
const joinCodeLength = 10

// RegistrationService orchestrates organization signup: duplicate checks,
// tenant database provisioning, registry writes, and the signup event.
type RegistrationService struct {
	registry    database.RegistryStore
	provisioner *Provisioner
	queue       messagequeue.Queue
	cfg         config.Provision
	bcryptCost  int
	log         *slog.Logger
	now         func() time.Time // for testing
}

// NewRegistrationService creates a RegistrationService. queue may be nil when
// no event publishing is wanted (admin CLI).
func NewRegistrationService(registry database.RegistryStore, provisioner *Provisioner, queue messagequeue.Queue, cfg config.Provision, bcryptCost int, log *slog.Logger) *RegistrationService {
	return &RegistrationService{
		registry:    registry,
		provisioner: provisioner,
		queue:       queue,
		cfg:         cfg,
		bcryptCost:  bcryptCost,
		log:         log,
		now:         time.Now,
	}
}

// Register signs up a new organization. The admin's email must be unused in
// the registry; the password is hashed exactly once and the same hash lands
// in both the tenant database and the registry principal row.
func (s *RegistrationService) Register(ctx context.Context, req organization.SignupRequest) (*organization.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate signup: %w", err)
	}

	exists, err := s.registry.EmailExists(ctx, req.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("check admin email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("admin email %s: %w", req.AdminEmail, domain.ErrDuplicateEmail)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Codes are generated before provisioning: exhausting their retries is
	// a cheap failure, and doing it afterwards would strand a fully
	// provisioned orphan database. Races between the uniqueness check and
	// the registry write are caught by the unique constraints.
	joinCode, err := s.generateJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := s.generateOrgID(ctx)
	if err != nil {
		return nil, err
	}

	firstName, lastName := identity.SplitName(req.AdminName)

	result, err := s.provisioner.Provision(ctx, tenantadmin.BootstrapAdmin{
		Email:        req.AdminEmail,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        req.AdminPhone,
	})
	if err != nil {
		s.publishProvisionFail(ctx, req.Name, result.DatabaseName, string(result.State), err)
		return nil, fmt.Errorf("provision tenant: %w", err)
	}

	plan := req.LicensePlan
	if plan == "" {
		plan = organization.DefaultLicensePlan
	}
	seats := req.LicenseSeats
	if seats == 0 {
		seats = organization.DefaultLicenseSeats
	}

	org := &organization.Organization{
		ID:           orgID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		JoinCode:     joinCode,
		DatabaseName: result.DatabaseName,
		LicensePlan:  plan,
		LicenseSeats: seats,
	}
	if err := s.registry.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	principal := &identity.Principal{
		ID:           uuid.New().String(),
		Email:        req.AdminEmail,
		Name:         req.AdminName,
		PasswordHash: string(hash),
		Role:         identity.RoleAdmin,
		OrgID:        org.ID,
		DatabaseName: org.DatabaseName,
		Active:       true,
	}
	if err := s.upsertPrincipalRetry(ctx, principal); err != nil {
		// The org row and tenant database exist; the admin can still be
		// written by a later signup retry thanks to the upsert.
		return nil, fmt.Errorf("write admin principal: %w", err)
	}

	s.publishRegistered(ctx, org, req.AdminEmail)
	s.log.Info("organization registered",
		"org_id", org.ID, "database", org.DatabaseName)
	return org, nil
}

// upsertPrincipalRetry retries the final registry write. The upsert is keyed
// on email, so retries cannot duplicate rows.
func (s *RegistrationService) upsertPrincipalRetry(ctx context.Context, p *identity.Principal) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.PrincipalWriteRetries; attempt++ {
		lastErr = s.registry.UpsertPrincipal(ctx, p)
		if lastErr == nil {
			return nil
		}
		s.log.Warn("admin principal write failed, retrying",
			"attempt", attempt, "error", lastErr)
	}
	return lastErr
}

// generateJoinCode produces a join code that is unique across the registry.
func (s *RegistrationService) generateJoinCode(ctx context.Context) (string, error) {
	for range s.cfg.CodeRetries {
		code, err := randomCode(joinCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		taken, err := s.registry.JoinCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate join code after %d attempts: %w",
		s.cfg.CodeRetries, domain.ErrAllocationExhausted)
}

// generateOrgID produces an organization ID of the form ORG-YYYYMMDD-XXXX.
func (s *RegistrationService) generateOrgID(ctx context.Context) (string, error) {
	datePart := s.now().UTC().Format("20060102")
	for range s.cfg.CodeRetries {
		suffix, err := randomCode(4)
		if err != nil {
			return "", fmt.Errorf("generate org id: %w", err)
		}
		id := fmt.Sprintf("ORG-%s-%s", datePart, suffix)
		taken, err := s.registry.OrganizationIDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check org id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate org id after %d attempts: %w",
		s.cfg.CodeRetries, domain.ErrAllocationExhausted)
}

// randomCode returns n characters drawn uniformly from codeAlphabet.
func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, org *organization.Organization, adminEmail string) {
	if s.queue == nil {
		return
	}
	payload, _ := json.Marshal(messagequeue.OrgRegisteredPayload{
		OrgID:        org.ID,
		Name:         org.Name,
		JoinCode:     org.JoinCode,
		DatabaseName: org.DatabaseName,
		AdminEmail:   adminEmail,
	})
	if err := s.queue.Publish(ctx, messagequeue.SubjectOrgRegistered, payload); err != nil {
		s.log.Warn("publish org registered event", "error", err)
	}
}

func (s *RegistrationService) publishProvisionFail(ctx context.Context, name, database, state string, cause error) {
	if s.queue == nil {
		return
	}
	var msg string
	if cause != nil {
		msg = cause.Error()
	}
	payload, _ := json.Marshal(messagequeue.OrgProvisionFailPayload{
		Name:         name,
		DatabaseName: database,
		State:        state,
		Error:        msg,
	})
	if err := s.queue.Publish(ctx, messagequeue.SubjectOrgProvisionFail, payload); err != nil {
		s.log.Warn("publish provision fail event", "error", err)
	}
}
