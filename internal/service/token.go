package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
)

// Claims is the JWT payload for ChronoTrack access tokens. Source records
// which store the principal was authenticated against so later resolution
// can try that store first.
type Claims struct {
	Source string `json:"src"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer creates a TokenIssuer. secret must be non-empty in
// production; an empty secret makes every token verifiable by anyone.
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Issue signs an access token for the principal.
func (t *TokenIssuer) Issue(p *identity.Principal, source identity.Source) (string, error) {
	now := time.Now()
	claims := Claims{
		Source: string(source),
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    "chronotrack",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token, returning its claims.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", domain.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthenticated)
	}
	return claims, nil
}

// Expiry returns the configured token lifetime.
func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}
