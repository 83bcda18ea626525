package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jfi/employee-api/middleware"
)

var (
	// ErrJWKSFetchFailed is returned when the key set cannot be retrieved
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

	// ErrUnknownKey is returned when no key in the set matches the token kid
	ErrUnknownKey = errors.New("signing key not found")
)

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSConfig holds configuration for JWKSValidator
type JWKSConfig struct {
	URL         string
	Issuer      string
	Audience    string
	Leeway      time.Duration
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
}

// JWKSValidator validates RS256 tokens against the keys published by an
// identity provider.
type JWKSValidator struct {
	url        string
	httpClient *http.Client
	parser     *jwt.Parser
	cacheTTL   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

var _ middleware.TokenValidator = (*JWKSValidator)(nil)

// minRefreshInterval bounds refetches triggered by unknown key ids.
const minRefreshInterval = 30 * time.Second

// NewJWKSValidator creates a new JWKS backed validator
func NewJWKSValidator(cfg JWKSConfig) (*JWKSValidator, error) {
	if cfg.URL == "" {
		return nil, errors.New("jwks url is required")
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	v := &JWKSValidator{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		cacheTTL:   cfg.CacheTTL,
		now:        time.Now,
		keys:       make(map[string]*rsa.PublicKey),
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
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
func (v *JWKSValidator) ValidateToken(ctx context.Context, tokenString string) (*middleware.Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return requestClaims(claims)
}

// publicKey returns the key for kid, refreshing the set when the cache has
// expired or the kid is unknown.
func (v *JWKSValidator) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	age := v.now().Sub(v.fetchedAt)
	key, ok := v.keys[kid]
	if ok && age < v.cacheTTL {
		return key, nil
	}
	if !ok && !v.fetchedAt.IsZero() && age < minRefreshInterval {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok = v.keys[kid]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return key, nil
}

// refresh must be called with mu held
func (v *JWKSValidator) refresh(ctx context.Context) error {
	jwks, err := v.fetch(ctx)
	if err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		jwk := &jwks.Keys[i]
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		key, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			return fmt.Errorf("invalid key %s: %w", jwk.Kid, err)
		}
		keys[jwk.Kid] = key
	}

	v.keys = keys
	v.fetchedAt = v.now()
	return nil
}

func (v *JWKSValidator) fetch(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	return &jwks, nil
}

// InvalidateCache drops every cached key so that the next validation refetches
func (v *JWKSValidator) InvalidateCache() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = make(map[string]*rsa.PublicKey)
	v.fetchedAt = time.Time{}
}

func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("malformed key material")
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
