package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
)

// LoginRequest is the credentials payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both credential fields are present.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse carries the signed token and the resolved identity.
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int                `json:"expires_in"`
	Identity    *identity.Identity `json:"identity"`
}

// AuthService authenticates principals from either store and issues access
// tokens carrying the source hint.
type AuthService struct {
	resolver *IdentityResolver
	tokens   *TokenIssuer
	log      *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(resolver *IdentityResolver, tokens *TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{resolver: resolver, tokens: tokens, log: log}
}

// Login authenticates the credentials against the registry first, then the
// demo store. The error is the same whether the email is unknown, the
// account inactive, or the password wrong.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	p, source, err := s.resolver.ResolveByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidIdentity) {
			return nil, fmt.Errorf("login: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("login: %w", domain.ErrUnauthenticated)
	}

	token, err := s.tokens.Issue(p, source)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	ident, err := s.resolver.Resolve(ctx, p.ID, source)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	s.log.Info("login", "principal_id", p.ID, "source", source)
	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
		Identity:    ident,
	}, nil
}
