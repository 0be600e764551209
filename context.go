package goGate

import (
	"context"
	"sync"
	"time"
)

type clientIPContextKey struct{}
type requestContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Gate uses it for
// rate-limit keys and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the address attached by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID     string
	Username   string
	Claims     map[string]any
	RememberMe bool
	TokenID    string
	ExpiresAt  time.Time
	Token      string
}

// RequestContext is a request-scoped cell holding at most one Identity.
//
// One RequestContext is created per request and travels in its context.Context;
// it is never shared between requests.
type RequestContext struct {
	mu       sync.RWMutex
	identity Identity
	set      bool
}

// WithRequestContext returns a child of ctx carrying a new, empty RequestContext.
func WithRequestContext(ctx context.Context) (context.Context, *RequestContext) {
	if ctx == nil {
		ctx = context.Background()
	}
	rc := &RequestContext{}
	return context.WithValue(ctx, requestContextKey{}, rc), rc
}

// RequestContextFrom returns the RequestContext attached to ctx, or nil.
func RequestContextFrom(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// IdentityFromContext returns the identity of an authenticated request.
// ok is false for anonymous requests and once the request has finished.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	return RequestContextFrom(ctx).Get()
}

// Set stores id, replacing any previous identity.
func (rc *RequestContext) Set(id Identity) {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	rc.identity = id
	rc.set = true
	rc.mu.Unlock()
}

// Get returns the stored identity.
func (rc *RequestContext) Get() (Identity, bool) {
	if rc == nil {
		return Identity{}, false
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.identity, rc.set
}

// Clear empties the cell.
func (rc *RequestContext) Clear() {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	rc.identity = Identity{}
	rc.set = false
	rc.mu.Unlock()
}
