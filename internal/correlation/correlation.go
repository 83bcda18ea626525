// Package correlation mints the per-request correlation token and carries it
// through a request's call graph.
//
// The token travels inside context.Context, so any goroutine that is handed
// the request context observes the same value no matter where it runs. There
// is no goroutine-bound state: log emitters read the token from the context
// at the moment of each log call (see observability.ContextLogger).
package correlation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	// HeaderName is the response header carrying the token.
	HeaderName = "X-Request-Id"

	// LogField is the structured log field name for the token.
	LogField = "request_id"
)

// Token is an opaque request-unique identifier in canonical UUID form.
type Token string

// String returns the canonical UUID representation.
func (t Token) String() string {
	return string(t)
}

type contextKey struct{}

// Attach returns a copy of ctx that carries token. Every continuation that
// receives the returned context, directly or through derived contexts,
// observes token from Current.
func Attach(ctx context.Context, token Token) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// Current returns the token attached to ctx. The second result is false when
// the code runs outside any request (startup, background work, health probes
// without correlation).
func Current(ctx context.Context) (Token, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(contextKey{}).(Token)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Registry tracks the tokens of requests that are currently in flight.
// Begin never hands out a token that is still active, and End releases it.
type Registry struct {
	mu     sync.Mutex
	active map[Token]struct{}
	newID  func() uuid.UUID
}

// NewRegistry creates an empty registry backed by random (v4) UUIDs.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[Token]struct{}),
		newID:  uuid.New,
	}
}

// Begin mints a fresh token and marks it active. It must be called once per
// inbound request before any application code for that request runs.
func (r *Registry) Begin() Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		token := Token(r.newID().String())
		if _, taken := r.active[token]; taken {
			continue
		}
		r.active[token] = struct{}{}
		return token
	}
}

// End releases token. It is safe to call more than once.
func (r *Registry) End(token Token) {
	r.mu.Lock()
	delete(r.active, token)
	r.mu.Unlock()
}

// InFlight returns the number of requests that have begun but not ended.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
