package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/requestctx"
)

const defaultTokenHeader = "token"

var errNoVerifier = errors.New("auth: no verifier accepted the token")

// Verifier decodes a raw credential into an identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

// Verifiers tries each verifier in order and returns the first identity. It lets tokens
// issued at login coexist with Firebase ID tokens.
type Verifiers []Verifier

// Verify returns the first successful verification or the last error.
func (vs Verifiers) Verify(ctx context.Context, raw string) (*Identity, error) {
	err := errNoVerifier
	for _, v := range vs {
		if v == nil {
			continue
		}
		identity, verr := v.Verify(ctx, raw)
		if verr == nil && identity != nil {
			return identity, nil
		}
		if verr != nil {
			err = verr
		}
	}
	return nil, err
}

// Authenticator turns a Verifier into role-gated HTTP middleware. Every verification failure
// is reported with the same "invalid token" response.
type Authenticator struct {
	verifier Verifier
	header   string
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithTokenHeader selects the request header carrying the credential.
func WithTokenHeader(name string) Option {
	return func(a *Authenticator) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			a.header = trimmed
		}
	}
}

func NewAuthenticator(verifier Verifier, opts ...Option) *Authenticator {
	a := &Authenticator{verifier: verifier, header: defaultTokenHeader}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireUser admits any authenticated identity.
func (a *Authenticator) RequireUser() func(http.Handler) http.Handler { return a.Require() }

func (a *Authenticator) AdminOnly() func(http.Handler) http.Handler { return a.Require(RoleAdmin) }

func (a *Authenticator) AdminOrManager() func(http.Handler) http.Handler {
	return a.Require(RoleAdmin, RoleManager)
}

func (a *Authenticator) AdminOrLogistics() func(http.Handler) http.Handler {
	return a.Require(RoleAdmin, RoleLogistics)
}

// Require verifies the credential and, when roles are given, that the identity holds one of them.
func (a *Authenticator) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := a.extractToken(r)
			if raw == "" || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "invalid token", http.StatusUnauthorized))
				return
			}
			identity, err := a.verifier.Verify(ctx, raw)
			if err != nil || identity == nil {
				requestctx.Logger(ctx).Debug("auth: token rejected")
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "invalid token", http.StatusUnauthorized))
				return
			}
			requestctx.SetActor(ctx, identity.UserID)
			if len(roles) > 0 && !identity.HasAnyRole(roles...) {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not authorized", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func (a *Authenticator) extractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(a.header)); token != "" {
		return token
	}
	token, _ := extractBearerToken(r.Header.Get("Authorization"))
	return token
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
