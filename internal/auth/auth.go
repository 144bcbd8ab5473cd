// Package auth validates bearer tokens and enforces tenant ownership.
//
// Tokens are HS256 JWTs signed with a shared secret. OIDC, JWKS rotation,
// and audience checks are deliberately out of scope; Principal is the
// stable boundary a richer validator would slot behind.
package auth

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token validation and authorization.
var (
	// ErrUnauthorized indicates a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a valid token without sufficient rights.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated caller.
type Principal struct {
	// Subject identifies the caller (JWT "sub").
	Subject string

	// TenantID is the tenant the caller belongs to.
	TenantID string

	// Scopes are the caller's granted scopes.
	Scopes []string
}

// HasScope reports whether the principal holds the scope.
func (p Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// claims is the expected JWT payload shape.
type claims struct {
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and extracts the Principal.
// Tokens missing sub or tenant_id are rejected.
func ParseToken(secret, token string) (Principal, error) {
	if secret == "" {
		return Principal{}, fmt.Errorf("%w: no signing secret configured", ErrUnauthorized)
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: invalid token: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if c.Subject == "" || c.TenantID == "" {
		return Principal{}, fmt.Errorf("%w: missing required claims", ErrUnauthorized)
	}

	return Principal{
		Subject:  c.Subject,
		TenantID: c.TenantID,
		Scopes:   c.Scopes,
	}, nil
}

// RequireScopes returns an error unless the principal holds every scope.
func RequireScopes(p Principal, required ...string) error {
	for _, s := range required {
		if !p.HasScope(s) {
			return fmt.Errorf("%w: missing required scope %q", ErrForbidden, s)
		}
	}
	return nil
}

// EnforceTenant rejects requests addressing a tenant other than the
// principal's own. Deny by default; there is no cross-tenant grant.
func EnforceTenant(requested string, p Principal) error {
	if requested == "" || requested != p.TenantID {
		return fmt.Errorf("%w: tenant mismatch", ErrForbidden)
	}
	return nil
}
