package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
)

var (
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

// Logger captures the minimal logging contract used by the auth package.
type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

const defaultJWKSRefreshInterval = time.Hour

// JWKSCache fetches Google's signing keys and keeps them until the response's max-age expires.
// An unknown kid forces one refresh so rotated keys are picked up immediately.
type JWKSCache struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu     sync.RWMutex
	keys   map[string]jose.JSONWebKey
	expiry time.Time

	refreshMu sync.Mutex
}

// JWKSOption customises JWKSCache behaviour.
type JWKSOption func(*JWKSCache)

func WithJWKSHTTPClient(client *http.Client) JWKSOption {
	return func(c *JWKSCache) {
		if client != nil {
			c.client = client
		}
	}
}

func WithJWKSClock(now func() time.Time) JWKSOption {
	return func(c *JWKSCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	c := &JWKSCache{url: url, client: &http.Client{Timeout: 10 * time.Second}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Key resolves the public key for kid.
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	if key, ok := c.cached(kid); ok {
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.cached(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

func (c *JWKSCache) cached(kid string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.keys == nil || !c.now().Before(c.expiry) {
		return nil, false
	}
	jwk, ok := c.keys[kid]
	if !ok {
		return nil, false
	}
	return jwk.Key, true
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode jwks: %v", ErrJWKSFetchFailed, err)
	}
	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID != "" && jwk.Valid() && jwk.IsPublic() {
			keys[jwk.KeyID] = jwk
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty key set", ErrJWKSFetchFailed)
	}

	validity := parseMaxAge(resp.Header.Get("Cache-Control"))
	if validity <= 0 {
		validity = defaultJWKSRefreshInterval
	}
	c.mu.Lock()
	c.keys = keys
	c.expiry = c.now().Add(validity)
	c.mu.Unlock()
	return nil
}

func parseMaxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(strings.ToLower(part), "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(part[len("max-age="):]))
		if err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// ServiceIdentity is the verified caller of an internal endpoint.
type ServiceIdentity struct {
	Subject string
	Email   string
	Issuer  string
}

type serviceIdentityContextKey struct{}

func WithServiceIdentity(ctx context.Context, identity *ServiceIdentity) context.Context {
	return context.WithValue(ctx, serviceIdentityContextKey{}, identity)
}

func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	identity, ok := ctx.Value(serviceIdentityContextKey{}).(*ServiceIdentity)
	return identity, ok && identity != nil
}

// OIDCValidator admits requests carrying a Google-signed OIDC token, such as those sent by Cloud
// Scheduler to internal endpoints.
type OIDCValidator struct {
	cache  *JWKSCache
	logger Logger
	now    func() time.Time
}

// OIDCOption customises the validator.
type OIDCOption func(*OIDCValidator)

func WithOIDCLogger(logger Logger) OIDCOption {
	return func(v *OIDCValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithOIDCClock(now func() time.Time) OIDCOption {
	return func(v *OIDCValidator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewOIDCValidator(cache *JWKSCache, opts ...OIDCOption) *OIDCValidator {
	v := &OIDCValidator{cache: cache, logger: discardLogger{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// RequireOIDC checks signature, expiry, audience and issuer. When emails is non-empty the
// token's email claim must be one of them and verified.
func (v *OIDCValidator) RequireOIDC(audience string, issuers, emails []string) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	allowedIssuers := toSet(issuers)
	allowedEmails := toSet(emails)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if audience == "" || v.cache == nil {
				httpx.WriteError(ctx, w, httpx.NewError("verification_unavailable", "internal authentication not configured", http.StatusServiceUnavailable))
				return
			}
			raw, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "invalid token", http.StatusUnauthorized))
				return
			}

			identity, reason, err := v.verify(ctx, raw, audience, allowedIssuers, allowedEmails)
			if err != nil {
				v.logger.Printf("auth: oidc rejected (%s): %v", reason, err)
				status := http.StatusUnauthorized
				if errors.Is(err, ErrJWKSFetchFailed) {
					status = http.StatusServiceUnavailable
				}
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "invalid token", status))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithServiceIdentity(ctx, identity)))
		})
	}
}

func (v *OIDCValidator) verify(ctx context.Context, raw, audience string, issuers, emails map[string]struct{}) (*ServiceIdentity, string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return v.cache.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, "jwks_unavailable", err
		}
		return nil, "signature", err
	}

	if !claims.VerifyExpiresAt(v.now().Unix(), true) {
		return nil, "expired", errors.New("token expired")
	}
	if !claims.VerifyAudience(audience, true) {
		return nil, "audience", fmt.Errorf("audience mismatch, expected %q", audience)
	}
	issuer, _ := claims["iss"].(string)
	if len(issuers) > 0 {
		if _, ok := issuers[strings.ToLower(issuer)]; !ok {
			return nil, "issuer", fmt.Errorf("issuer %q not allowed", issuer)
		}
	}
	email, _ := claims["email"].(string)
	if len(emails) > 0 {
		verified, _ := claims["email_verified"].(bool)
		if _, ok := emails[strings.ToLower(email)]; !ok || !verified {
			return nil, "email", fmt.Errorf("service account %q not allowed", email)
		}
	}
	subject, _ := claims["sub"].(string)
	return &ServiceIdentity{Subject: subject, Email: email, Issuer: issuer}, "", nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}
