package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const (
	defaultRoleClaim     = "role"
	defaultVerifyTimeout = 5 * time.Second
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens and reads the storefront role from a custom claim.
// Tokens without the claim are treated as regular users.
type FirebaseVerifier struct {
	client    idTokenVerifier
	roleClaim string
	timeout   time.Duration
}

// FirebaseConfig selects the project and optional credentials file.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFirebaseVerifier initialises the Admin SDK auth client.
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return newFirebaseVerifier(client), nil
}

func newFirebaseVerifier(client idTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, roleClaim: defaultRoleClaim, timeout: defaultVerifyTimeout}
}

// Verify implements Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	if v == nil || v.client == nil {
		return nil, fmt.Errorf("%w: firebase verifier not initialised", ErrTokenInvalid)
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	role := RoleUser
	if claimed, ok := token.Claims[v.roleClaim].(string); ok && strings.TrimSpace(claimed) != "" {
		role = normaliseRole(claimed)
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, role)
	}
	email, _ := token.Claims["email"].(string)
	return &Identity{UserID: token.UID, Role: role, Email: email}, nil
}
