package service_test

import (
	"context"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

func TestSeedDemoAccounts(t *testing.T) {
	demo := newMockDemo()

	if err := service.SeedDemoAccounts(context.Background(), demo, bcrypt.MinCost, slog.Default()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, _ := demo.CountPrincipals(context.Background())
	if n != 3 {
		t.Fatalf("got %d demo accounts, want 3", n)
	}

	admin, err := demo.GetPrincipalByEmail(context.Background(), "demo.admin@chronotrack.io")
	if err != nil {
		t.Fatalf("lookup demo admin: %v", err)
	}
	if admin.Role != identity.RoleAdmin {
		t.Errorf("role = %s, want admin", admin.Role)
	}
	if !admin.Active {
		t.Error("demo admin is not active")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("demo-admin-pass")); err != nil {
		t.Errorf("demo admin password hash does not verify: %v", err)
	}
	if admin.OrgID != "" || admin.DatabaseName != "" {
		t.Error("demo accounts must not carry tenant linkage")
	}
}

func TestSeedDemoAccountsSkipsPopulatedStore(t *testing.T) {
	demo := newMockDemo()
	seedDemoPrincipal(t, demo)

	if err := service.SeedDemoAccounts(context.Background(), demo, bcrypt.MinCost, slog.Default()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, _ := demo.CountPrincipals(context.Background())
	if n != 1 {
		t.Errorf("got %d accounts after seeding a populated store, want 1", n)
	}
}
