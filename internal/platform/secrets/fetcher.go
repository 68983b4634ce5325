package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFallbackPath = ".secrets.local"
	metricNamespace     = "github.com/Navneet1206/E-Commerce-sub000/internal/platform/secrets"
)

// ErrNotFound reports a reference that neither Secret Manager nor the fallback file could satisfy.
var ErrNotFound = errors.New("secrets: not found")

var newSecretManagerClient = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret://name references against Google Secret Manager. Values are cached for
// a bounded time so rotated payment keys are eventually picked up without a restart. When the
// remote service is unreachable, values come from a local KEY=value file.
type Fetcher struct {
	client     secretManagerClient
	ownsClient bool
	logger     *zap.Logger
	project    string
	ttl        time.Duration
	now        func() time.Time

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]cached

	lookups metric.Int64Counter
}

type cached struct {
	value     string
	expiresAt time.Time
}

type fetcherConfig struct {
	logger       *zap.Logger
	project      string
	ttl          time.Duration
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
	meter        metric.Meter
	now          func() time.Time
}

// Option customises Fetcher construction.
type Option func(*fetcherConfig)

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *fetcherConfig) { cfg.logger = logger }
}

// WithDefaultProject sets the project used when a reference carries no ?project= override.
func WithDefaultProject(projectID string) Option {
	return func(cfg *fetcherConfig) { cfg.project = strings.TrimSpace(projectID) }
}

// WithCacheTTL bounds how long a resolved value is reused. Zero caches forever.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *fetcherConfig) { cfg.ttl = ttl }
}

func WithFallbackFile(path string) Option {
	return func(cfg *fetcherConfig) { cfg.fallbackPath = strings.TrimSpace(path) }
}

func WithSecretManagerClient(client secretManagerClient) Option {
	return func(cfg *fetcherConfig) { cfg.client = client }
}

func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *fetcherConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

func WithMeter(m metric.Meter) Option {
	return func(cfg *fetcherConfig) { cfg.meter = m }
}

func withClock(now func() time.Time) Option {
	return func(cfg *fetcherConfig) { cfg.now = now }
}

// NewFetcher builds a Fetcher. A Secret Manager client that cannot be created is not fatal; the
// fetcher then serves only from the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{
		logger:       zap.NewNop(),
		ttl:          10 * time.Minute,
		fallbackPath: defaultFallbackPath,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.meter == nil {
		cfg.meter = otel.GetMeterProvider().Meter(metricNamespace)
	}

	lookups, err := cfg.meter.Int64Counter("secrets.lookups", metric.WithDescription("Secret resolutions by source"))
	if err != nil {
		return nil, fmt.Errorf("secrets: register metric: %w", err)
	}

	f := &Fetcher{
		logger:       cfg.logger,
		project:      cfg.project,
		ttl:          cfg.ttl,
		now:          cfg.now,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]cached),
		lookups:      lookups,
	}

	if cfg.client != nil {
		f.client = cfg.client
		return f, nil
	}
	client, err := newSecretManagerClient(ctx, cfg.clientOpts...)
	if err != nil {
		cfg.logger.Warn("secrets: secret manager unavailable, using fallback file only", zap.Error(err))
		return f, nil
	}
	f.client = client
	f.ownsClient = true
	return f, nil
}

// Close releases the Secret Manager client when the fetcher created it.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Resolve returns the secret value for ref.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}

	if value, ok := f.cached(parsed.key()); ok {
		f.count(ctx, parsed, "cache")
		return value, nil
	}

	project := parsed.Project
	if project == "" {
		project = f.project
	}
	if project != "" && f.client != nil {
		value, err := f.fetchRemote(ctx, project, parsed)
		if err == nil {
			f.store(parsed.key(), value)
			f.count(ctx, parsed, "remote")
			return value, nil
		}
		if !isFallbackError(err) {
			f.count(ctx, parsed, "error")
			return "", fmt.Errorf("secrets: fetch %s: %w", parsed.Name, err)
		}
		f.logger.Debug("secrets: remote unavailable, trying fallback", zap.String("secret", mask(parsed.Name)), zap.Error(err))
	}

	value, ok := f.lookupFallback(parsed)
	if !ok {
		f.count(ctx, parsed, "error")
		return "", fmt.Errorf("%w: %s", ErrNotFound, parsed.Name)
	}
	f.store(parsed.key(), value)
	f.count(ctx, parsed, "fallback")
	return value, nil
}

// Invalidate drops the cached value for ref so the next Resolve refetches it.
func (f *Fetcher) Invalidate(ref string) {
	parsed, err := parseReference(ref)
	if err != nil {
		return
	}
	f.mu.Lock()
	delete(f.cache, parsed.key())
	f.mu.Unlock()
}

func (f *Fetcher) cached(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && !f.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (f *Fetcher) store(key, value string) {
	entry := cached{value: value}
	if f.ttl > 0 {
		entry.expiresAt = f.now().Add(f.ttl)
	}
	f.mu.Lock()
	f.cache[key] = entry
	f.mu.Unlock()
}

func (f *Fetcher) fetchRemote(ctx context.Context, project string, ref reference) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.Name, ref.Version)
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) lookupFallback(ref reference) (string, bool) {
	f.fallbackOnce.Do(func() {
		f.fallback = map[string]string{}
		if f.fallbackPath == "" {
			return
		}
		values, err := godotenv.Read(f.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				f.logger.Warn("secrets: fallback file unreadable", zap.String("path", f.fallbackPath), zap.Error(err))
			}
			return
		}
		for key, value := range values {
			f.fallback[strings.TrimSpace(key)] = value
		}
	})

	for _, key := range []string{ref.Name + "@" + ref.Version, ref.Name, strings.ToUpper(strings.ReplaceAll(ref.Name, "-", "_"))} {
		if value, ok := f.fallback[key]; ok {
			return value, true
		}
	}
	return "", false
}

func (f *Fetcher) count(ctx context.Context, ref reference, source string) {
	f.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("secret", mask(ref.Name)),
	))
}

type reference struct {
	Name    string
	Version string
	Project string
}

func (r reference) key() string {
	return r.Project + "/" + r.Name + "@" + r.Version
}

// parseReference accepts secret://name[?version=N&project=P]. The sm:// alias is normalised by
// the config loader before it reaches here but is tolerated as well.
func parseReference(raw string) (reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reference{}, errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(raw, "sm://") {
		raw = "secret://" + strings.TrimPrefix(raw, "sm://")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", raw, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", raw)
	}
	query := u.Query()
	version := strings.TrimSpace(query.Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{Name: name, Version: version, Project: strings.TrimSpace(query.Get("project"))}, nil
}

func mask(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:6])
}

func isFallbackError(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	default:
		return false
	}
}
