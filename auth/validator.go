// Package auth validates the bearer tokens that guard the write routes.
// Tokens are either HS256 signed with a shared secret (Validator) or RS256
// signed by an external identity provider publishing a JWKS (JWKSValidator).
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jfi/employee-api/middleware"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingSecret is returned when the validator has no signing secret
	ErrMissingSecret = errors.New("signing secret is required")
)

// Claims represents the claims carried by the token
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Config holds configuration for Validator
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Validator validates HS256 tokens signed with a shared secret
type Validator struct {
	secret []byte
	parser *jwt.Parser
	cfg    Config
	now    func() time.Time
}

var _ middleware.TokenValidator = (*Validator)(nil)

// NewValidator creates a new HS256 validator
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	v := &Validator{
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		now:    time.Now,
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)

	return v, nil
}

// ValidateToken validates a JWT token and returns the request claims
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (*middleware.Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return requestClaims(claims)
}

// requestClaims converts verified token claims into the request claims
// carried by the context.
func requestClaims(claims *Claims) (*middleware.Claims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := &middleware.Claims{
		Sub:   claims.Subject,
		Name:  claims.Name,
		Roles: slices.Clone(claims.Roles),
		Iss:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out.Iat = claims.IssuedAt.Unix()
	}
	return out, nil
}

// Issue signs a token for subject carrying roles, valid for ttl
func (v *Validator) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	if v.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
