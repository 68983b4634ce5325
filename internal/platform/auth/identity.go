package auth

import (
	"context"
	"strings"
)

// Roles recognised by the storefront.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleLogistics = "logistics"
)

// Identity is the authenticated caller decoded from a user credential.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

// HasRole reports whether the identity carries role (case-insensitive).
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return strings.EqualFold(i.Role, strings.TrimSpace(role))
}

// HasAnyRole reports whether the identity carries any of roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// IsStaff reports whether the identity belongs to the back office.
func (i *Identity) IsStaff() bool {
	return i.HasAnyRole(RoleAdmin, RoleManager, RoleLogistics)
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch normaliseRole(role) {
	case RoleUser, RoleAdmin, RoleManager, RoleLogistics:
		return true
	default:
		return false
	}
}

type identityContextKey struct{}

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
