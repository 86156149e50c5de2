package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/port/database"
)

// demoAccounts are the fixed accounts every deployment exposes for product
// evaluation. Hashing happens here rather than in SQL so the migrations
// never embed password material.
var demoAccounts = []struct {
	email    string
	name     string
	role     identity.Role
	password string
}{
	{"demo.admin@chronotrack.io", "Dana Admin", identity.RoleAdmin, "demo-admin-pass"},
	{"demo.manager@chronotrack.io", "Morgan Manager", identity.RoleManager, "demo-manager-pass"},
	{"demo.employee@chronotrack.io", "Evan Employee", identity.RoleEmployee, "demo-employee-pass"},
}

// SeedDemoAccounts writes the demo accounts if the demo store is empty.
// Creation uses ON CONFLICT DO NOTHING, so concurrent instances racing on
// startup cannot duplicate accounts.
func SeedDemoAccounts(ctx context.Context, store database.DemoStore, bcryptCost int, log *slog.Logger) error {
	n, err := store.CountPrincipals(ctx)
	if err != nil {
		return fmt.Errorf("count demo accounts: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, acc := range demoAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcryptCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		p := &identity.Principal{
			ID:           uuid.New().String(),
			Email:        acc.email,
			Name:         acc.name,
			PasswordHash: string(hash),
			Role:         acc.role,
			Active:       true,
		}
		if err := store.CreatePrincipal(ctx, p); err != nil {
			return fmt.Errorf("seed demo account %s: %w", acc.email, err)
		}
	}

	log.Info("demo accounts seeded", "count", len(demoAccounts))
	return nil
}
