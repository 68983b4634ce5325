package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	dialTimeout = 10 * time.Second

	// Stock reservation and order confirmation contend on the same product documents, so
	// transactions get more attempts than the client default.
	defaultTxAttempts = 8
	defaultTxTimeout  = 20 * time.Second

	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID = "GOOGLE_CLOUD_PROJECT"
)

var errProviderClosed = errors.New("firestore: provider is closed")

// Config selects the Firestore project and an optional emulator endpoint.
type Config struct {
	ProjectID    string
	EmulatorHost string
	// TxAttempts overrides how often a contended transaction is retried.
	TxAttempts int
}

// TxFunc runs inside a transaction. It may run more than once when Firestore retries after
// contention, so it must only touch state through tx.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// Provider lazily creates one Firestore client shared by every repository.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// NewProvider constructs a Provider. No connection is made until Client is called.
func NewProvider(cfg Config) *Provider {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		cfg.ProjectID = strings.TrimSpace(os.Getenv(envGoogleProjectID))
	}
	cfg.EmulatorHost = strings.TrimSpace(cfg.EmulatorHost)
	if cfg.EmulatorHost == "" {
		cfg.EmulatorHost = strings.TrimSpace(os.Getenv(envEmulatorHost))
	}
	if cfg.TxAttempts <= 0 {
		cfg.TxAttempts = defaultTxAttempts
	}
	return &Provider{cfg: cfg}
}

// Client returns the shared client, dialing on first use. A failed dial is retried on the
// next call.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return nil, errProviderClosed
	case p.client != nil:
		return p.client, nil
	case p.cfg.ProjectID == "":
		return nil, errors.New("firestore: project id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var opts []option.ClientOption
	if host := p.cfg.EmulatorHost; host != "" {
		// The SDK reads the variable for some code paths even with an explicit endpoint.
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := firestore.NewClient(ctx, p.cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	p.client = client
	return client, nil
}

// Close releases the client. The provider cannot be reused afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// Collection returns a reference to the named collection on the shared client.
func (p *Provider) Collection(ctx context.Context, name string) (*firestore.CollectionRef, error) {
	client, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(name), nil
}

// RunTransaction executes fn in a read-write transaction. Callers without a deadline get
// defaultTxTimeout.
func (p *Provider) RunTransaction(ctx context.Context, fn TxFunc) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}
	return WrapError("transaction", client.RunTransaction(ctx, fn, firestore.MaxAttempts(p.cfg.TxAttempts)))
}
