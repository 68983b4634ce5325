package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

const defaultIssuer = "storefront-api"

var (
	// ErrTokenInvalid covers every reason a credential is rejected.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrSigningKeyMissing signals a JWT issuer built without a secret.
	ErrSigningKeyMissing = errors.New("auth: signing secret not configured")
)

type tokenClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 user tokens carrying {id, role}.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// JWTOption customises a JWTIssuer.
type JWTOption func(*JWTIssuer)

func WithTokenTTL(ttl time.Duration) JWTOption {
	return func(j *JWTIssuer) {
		if ttl > 0 {
			j.ttl = ttl
		}
	}
}

func WithIssuer(issuer string) JWTOption {
	return func(j *JWTIssuer) {
		if trimmed := strings.TrimSpace(issuer); trimmed != "" {
			j.issuer = trimmed
		}
	}
}

func WithJWTClock(now func() time.Time) JWTOption {
	return func(j *JWTIssuer) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJWTIssuer constructs an issuer from a shared secret.
func NewJWTIssuer(secret string, opts ...JWTOption) (*JWTIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSigningKeyMissing
	}
	j := &JWTIssuer{
		secret: []byte(secret),
		ttl:    7 * 24 * time.Hour,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j, nil
}

// Issue signs a token for the user.
func (j *JWTIssuer) Issue(userID, role string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" || !ValidRole(role) {
		return "", time.Time{}, fmt.Errorf("auth: cannot issue token for %q with role %q", userID, role)
	}
	now := j.now().UTC()
	expires := now.Add(j.ttl)
	claims := tokenClaims{
		UserID: userID,
		Role:   normaliseRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify implements Verifier.
func (j *JWTIssuer) Verify(_ context.Context, raw string) (*Identity, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return j.secret, nil }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := j.now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w: expired", ErrTokenInvalid)
	}
	if !claims.VerifyIssuer(j.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.UserID) == "" || !ValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: missing id or role", ErrTokenInvalid)
	}
	return &Identity{UserID: claims.UserID, Role: normaliseRole(claims.Role)}, nil
}
