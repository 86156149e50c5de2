package service_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

func newTestAuth(registry *mockRegistry, demo *mockDemo) *service.AuthService {
	resolver := newTestResolver(registry, demo)
	tokens := service.NewTokenIssuer("test-secret", time.Hour)
	return service.NewAuthService(resolver, tokens, slog.Default())
}

func seedLoginPrincipal(t *testing.T, registry *mockRegistry, password string) *identity.Principal {
	t.Helper()
	p := seedRegistryPrincipal(t, registry, true)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	p.PasswordHash = string(hash)
	if err := registry.UpsertPrincipal(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoginRegistry(t *testing.T) {
	registry := newMockRegistry()
	seedLoginPrincipal(t, registry, "correct horse")
	auth := newTestAuth(registry, newMockDemo())

	resp, err := auth.Login(context.Background(), service.LoginRequest{
		Email:    "jane@acme.test",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("access token is empty")
	}
	if resp.Identity.Source != identity.SourceRegistry {
		t.Errorf("source = %s, want registry", resp.Identity.Source)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", resp.ExpiresIn)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	registry := newMockRegistry()
	seedLoginPrincipal(t, registry, "correct horse")
	auth := newTestAuth(registry, newMockDemo())

	_, err := auth.Login(context.Background(), service.LoginRequest{
		Email:    "jane@acme.test",
		Password: "wrong",
	})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	registry := newMockRegistry()
	seedLoginPrincipal(t, registry, "correct horse")
	auth := newTestAuth(registry, newMockDemo())

	_, err := auth.Login(context.Background(), service.LoginRequest{
		Email:    "nobody@nowhere.test",
		Password: "whatever1",
	})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLoginInactivePrincipal(t *testing.T) {
	registry := newMockRegistry()
	p := seedLoginPrincipal(t, registry, "correct horse")
	p.Active = false
	if err := registry.UpsertPrincipal(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	auth := newTestAuth(registry, newMockDemo())

	_, err := auth.Login(context.Background(), service.LoginRequest{
		Email:    "jane@acme.test",
		Password: "correct horse",
	})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for inactive account, got %v", err)
	}
}

func TestLoginDemoAccount(t *testing.T) {
	registry := newMockRegistry()
	demo := newMockDemo()
	p := seedDemoPrincipal(t, demo)
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-pass-123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	p.PasswordHash = string(hash)
	demo.principals[strings.ToLower(p.Email)] = *p
	auth := newTestAuth(registry, demo)

	resp, err := auth.Login(context.Background(), service.LoginRequest{
		Email:    p.Email,
		Password: "demo-pass-123",
	})
	if err != nil {
		t.Fatalf("demo login: %v", err)
	}
	if resp.Identity.Source != identity.SourceDemo {
		t.Errorf("source = %s, want demo", resp.Identity.Source)
	}
}

func TestLoginValidation(t *testing.T) {
	auth := newTestAuth(newMockRegistry(), newMockDemo())

	for _, req := range []service.LoginRequest{
		{Email: "", Password: "secret"},
		{Email: "jane@acme.test", Password: ""},
	} {
		if _, err := auth.Login(context.Background(), req); err == nil {
			t.Errorf("Login(%+v): expected validation error", req)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", time.Hour)
	p := &identity.Principal{ID: "p-1", Role: identity.RoleManager}

	token, err := issuer.Issue(p, identity.SourceRegistry)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "p-1" {
		t.Errorf("subject = %q, want p-1", claims.Subject)
	}
	if claims.Source != string(identity.SourceRegistry) {
		t.Errorf("src claim = %q, want registry", claims.Source)
	}
	if claims.Role != string(identity.RoleManager) {
		t.Errorf("role claim = %q, want manager", claims.Role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := service.NewTokenIssuer("secret-a", time.Hour)
	other := service.NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue(&identity.Principal{ID: "p-1", Role: identity.RoleAdmin}, identity.SourceDemo)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(&identity.Principal{ID: "p-1", Role: identity.RoleAdmin}, identity.SourceDemo)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.Verify(tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("Verify(%q): expected ErrUnauthenticated, got %v", tok, err)
		}
	}
}
