package middleware

import (
	"context"

	"github.com/jfi/employee-api/internal/correlation"
)

// Context key type to avoid collisions
type contextKey string

// ClaimsKey is the context key for JWT claims
const ClaimsKey contextKey = "claims"

// Claims represents JWT claims extracted from the token
type Claims struct {
	Sub   string   `json:"sub"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Iss   string   `json:"iss"` // Issuer
	Exp   int64    `json:"exp"` // Expiration
	Iat   int64    `json:"iat"` // Issued at
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetRequestIDFromContext returns the correlation token of the current
// request, or "" outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	if token, ok := correlation.Current(ctx); ok {
		return token.String()
	}
	return ""
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
