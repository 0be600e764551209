package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HS256 secret NewManager accepts.
const MinSecretLength = 32

const (
	// DefaultShortLifetime applies to tokens issued without remember-me.
	DefaultShortLifetime = 2 * time.Hour
	// DefaultLongLifetime applies to remember-me tokens.
	DefaultLongLifetime = 7 * 24 * time.Hour
	// DefaultExpiringSoonWindow is the remaining lifetime below which a token is reported as expiring soon.
	DefaultExpiringSoonWindow = 30 * time.Minute
)

var (
	// ErrConfig is returned by NewManager for a missing or weak secret and invalid lifetimes.
	ErrConfig = errors.New("invalid token configuration")
	// ErrTokenMalformed reports a token that is not three non-empty dot-separated segments.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignatureInvalid reports a token whose signature, algorithm or encoding does not verify.
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired reports a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Refresh when the presented token does not verify.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config controls token issuance and verification.
type Config struct {
	Secret             []byte
	Issuer             string
	ShortLifetime      time.Duration
	LongLifetime       time.Duration
	ExpiringSoonWindow time.Duration
	Leeway             time.Duration
	Now                func() time.Time
}

// Manager issues and verifies HS256 tokens with two lifetime classes.
//
// Manager instances are immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the verified content of a token.
type Claims struct {
	Identity   map[string]any
	RememberMe bool
	ID         string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// UserID returns the "id" identity claim rendered as a string, or "" when absent.
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return claimString(c.Identity["id"])
}

// Username returns the "username" identity claim, or "" when absent.
func (c *Claims) Username() string {
	if c == nil {
		return ""
	}
	return claimString(c.Identity["username"])
}

type tokenClaims struct {
	Identity   map[string]any `json:"claims"`
	RememberMe bool           `json:"rememberMe"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
//
// An empty secret, or one shorter than MinSecretLength, is rejected with ErrConfig.
// There is no fallback secret.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is not configured", ErrConfig)
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes", ErrConfig, MinSecretLength)
	}
	if cfg.ShortLifetime == 0 {
		cfg.ShortLifetime = DefaultShortLifetime
	}
	if cfg.LongLifetime == 0 {
		cfg.LongLifetime = DefaultLongLifetime
	}
	if cfg.ExpiringSoonWindow == 0 {
		cfg.ExpiringSoonWindow = DefaultExpiringSoonWindow
	}
	if cfg.ShortLifetime < 0 || cfg.LongLifetime < cfg.ShortLifetime {
		return nil, fmt.Errorf("%w: lifetimes must be positive and long >= short", ErrConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: invalid leeway", ErrConfig)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg}, nil
}

// Lifetime returns the token lifetime for the given remember-me class.
func (m *Manager) Lifetime(rememberMe bool) time.Duration {
	if rememberMe {
		return m.config.LongLifetime
	}
	return m.config.ShortLifetime
}

// Issue signs a token carrying identity and the remember-me flag.
// Expiry is now plus Lifetime(rememberMe).
//
// The identity is embedded in NormalizeIdentity form, so Verify returns exactly
// NormalizeIdentity(identity). Reserved claims live outside the identity map and
// a caller key such as "exp" is carried as plain identity data.
func (m *Manager) Issue(identity map[string]any, rememberMe bool) (string, error) {
	now := m.config.Now()

	normalized, err := NormalizeIdentity(identity)
	if err != nil {
		return "", err
	}

	claims := tokenClaims{
		Identity:   normalized,
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.Lifetime(rememberMe))),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks shape, signature and expiry, in that order.
//
// The shape check runs before any decoding, so a malformed token costs no crypto work.
// Errors wrap ErrTokenMalformed, ErrTokenSignatureInvalid or ErrTokenExpired.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if !WellFormed(tokenStr) {
		return nil, ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithJSONNumber(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenSignatureInvalid
	}

	out := &Claims{
		Identity:   normalizeMap(tc.Identity),
		RememberMe: tc.RememberMe,
		ID:         tc.ID,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	return out, nil
}

// Refresh verifies oldToken and issues a new token with the same identity and remember-me class.
// Store bookkeeping for both tokens is the caller's job.
func (m *Manager) Refresh(oldToken string) (string, *Claims, error) {
	claims, err := m.Verify(oldToken)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	next, err := m.Issue(claims.Identity, claims.RememberMe)
	if err != nil {
		return "", nil, err
	}
	nextClaims, err := m.Verify(next)
	if err != nil {
		return "", nil, err
	}
	return next, nextClaims, nil
}

// ExpiringSoon reports whether less than the configured window remains before expiry.
func (m *Manager) ExpiringSoon(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return claims.ExpiresAt.Sub(m.config.Now()) < m.config.ExpiringSoonWindow
}

// WellFormed reports whether token is three non-empty dot-separated segments.
func WellFormed(token string) bool {
	first := strings.IndexByte(token, '.')
	if first <= 0 {
		return false
	}
	rest := token[first+1:]
	second := strings.IndexByte(rest, '.')
	if second <= 0 {
		return false
	}
	last := rest[second+1:]
	return last != "" && strings.IndexByte(last, '.') < 0
}

// NormalizeIdentity returns the JSON form of identity that survives a token
// round trip: integral numbers of any Go width become int64, other numbers
// float64, structs and typed maps become map[string]any and slices []any.
func NormalizeIdentity(identity map[string]any) (map[string]any, error) {
	if len(identity) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("encode identity claims: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode identity claims: %w", err)
	}
	return normalizeMap(out), nil
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return normalizeMap(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

func claimString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
