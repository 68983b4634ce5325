package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "4000"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultBackend          = BackendFirestore
	defaultMongoDatabase    = "storefront"
	defaultAuthProvider     = AuthProviderJWT
	defaultTokenHeader      = "token"
	defaultTokenTTL         = 7 * 24 * time.Hour
	defaultOIDCJWKSURL      = "https://www.googleapis.com/oauth2/v3/certs"
	defaultOIDCIssuer       = "https://accounts.google.com"
	defaultNotifySink       = SinkLog
	defaultCurrency         = "INR"
	defaultDeliveryWindow   = 7 * 24 * time.Hour
	defaultRecommendRefresh = 6 * time.Hour
	defaultIdempotencyKey   = "Idempotency-Key"
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultGateway          = GatewayRazorpay
)

// Storage backends.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

// Identity providers.
const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

// Notification sinks.
const (
	SinkLog    = "log"
	SinkPubSub = "pubsub"
	SinkKafka  = "kafka"
)

// Payment gateways.
const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
)

// Config is the full runtime configuration grouped by concern.
type Config struct {
	Environment    string
	Server         ServerConfig
	Storage        StorageConfig
	Firebase       FirebaseConfig
	Objects        ObjectStoreConfig
	Payments       PaymentsConfig
	Auth           AuthConfig
	Notifications  NotificationConfig
	Orders         OrderConfig
	Recommendation RecommendationConfig
	Idempotency    IdempotencyConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend               string
	FirestoreProjectID    string
	FirestoreEmulatorHost string
	MongoURI              string
	MongoDatabase         string
}

// FirebaseConfig is used when Firebase ID tokens are accepted.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// ObjectStoreConfig names the bucket for return request images.
type ObjectStoreConfig struct {
	ReturnsBucket string
	PublicBaseURL string
}

// PaymentsConfig carries gateway credentials.
type PaymentsConfig struct {
	DefaultGateway string
	// CurrencyRoutes pins an ISO currency to a gateway, e.g. INR to razorpay.
	CurrencyRoutes       map[string]string
	RazorpayKeyID        string
	RazorpayKeySecret    string
	StripeAPIKey         string
	StripePublishableKey string
	StripeWebhookSecret  string
}

// AuthConfig configures user and service authentication.
type AuthConfig struct {
	Provider      string
	JWTSecret     string
	TokenTTL      time.Duration
	TokenHeader   string
	OIDCJWKSURL   string
	OIDCAudience  string
	OIDCIssuers   []string
	ServiceEmails []string
}

// NotificationConfig selects where email requests are published.
type NotificationConfig struct {
	Sink         string
	AdminEmail   string
	PubSubTopic  string
	KafkaBrokers []string
	KafkaTopic   string
}

// OrderConfig holds order placement parameters.
type OrderConfig struct {
	Currency       string
	DeliveryWindow time.Duration
}

// RecommendationConfig controls the recompute schedule.
type RecommendationConfig struct {
	RefreshInterval time.Duration
	Limit           int
}

// IdempotencyConfig controls replay protection on order creation.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// SecretResolver resolves secret:// references.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError wraps a failed secret lookup.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError reports required secrets that resolved to empty values.
// Names are hashed so the error can be logged.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the raw field names.
func (e *MissingSecretsError) Names() []string {
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames returns hashed field names.
func (e *MissingSecretsError) RedactedNames() []string {
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, redactSecretName(name))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the dotenv path. An empty path disables dotenv.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets marks secret fields (e.g. "Payments.RazorpayKeySecret") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

// EnvironmentValues returns the merged key/value view (dotenv < OS env < env map)
// so callers can bootstrap the secret fetcher before Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	dotenv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(dotenv))
	for k, v := range dotenv {
		values[k] = v
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if ok && strings.TrimSpace(key) != "" {
				values[key] = value
			}
		}
	}
	for k, v := range options.envMap {
		values[k] = v
	}
	return values, nil
}

// Load reads configuration from the environment, resolves secret references
// and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dotenv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotenv[key]
		return value, ok
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "SHOP_ENVIRONMENT", "local")),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SHOP_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "SHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			CORSOrigins:  csvWithDefault(lookup, "SHOP_CORS_ORIGINS"),
		},
		Storage: StorageConfig{
			Backend:               strings.ToLower(stringWithDefault(lookup, "SHOP_STORAGE_BACKEND", defaultBackend)),
			FirestoreProjectID:    stringWithDefault(lookup, "SHOP_FIRESTORE_PROJECT_ID", ""),
			FirestoreEmulatorHost: stringWithDefault(lookup, "SHOP_FIRESTORE_EMULATOR_HOST", ""),
			MongoURI:              stringWithDefault(lookup, "SHOP_MONGO_URI", ""),
			MongoDatabase:         stringWithDefault(lookup, "SHOP_MONGO_DATABASE", defaultMongoDatabase),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "SHOP_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "SHOP_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Objects: ObjectStoreConfig{
			ReturnsBucket: stringWithDefault(lookup, "SHOP_STORAGE_RETURNS_BUCKET", ""),
			PublicBaseURL: stringWithDefault(lookup, "SHOP_STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com"),
		},
		Payments: PaymentsConfig{
			DefaultGateway:       strings.ToLower(stringWithDefault(lookup, "SHOP_PAYMENTS_DEFAULT_GATEWAY", defaultGateway)),
			CurrencyRoutes:       currencyRoutes(csvWithDefault(lookup, "SHOP_PAYMENTS_CURRENCY_ROUTES")),
			RazorpayKeyID:        stringWithDefault(lookup, "SHOP_RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret:    stringWithDefault(lookup, "SHOP_RAZORPAY_KEY_SECRET", ""),
			StripeAPIKey:         stringWithDefault(lookup, "SHOP_STRIPE_API_KEY", ""),
			StripePublishableKey: stringWithDefault(lookup, "SHOP_STRIPE_PUBLISHABLE_KEY", ""),
			StripeWebhookSecret:  stringWithDefault(lookup, "SHOP_STRIPE_WEBHOOK_SECRET", ""),
		},
		Auth: AuthConfig{
			Provider:      strings.ToLower(stringWithDefault(lookup, "SHOP_AUTH_PROVIDER", defaultAuthProvider)),
			JWTSecret:     stringWithDefault(lookup, "SHOP_JWT_SECRET", ""),
			TokenTTL:      durationWithDefault(lookup, "SHOP_JWT_TTL", defaultTokenTTL),
			TokenHeader:   stringWithDefault(lookup, "SHOP_AUTH_HEADER", defaultTokenHeader),
			OIDCJWKSURL:   stringWithDefault(lookup, "SHOP_OIDC_JWKS_URL", defaultOIDCJWKSURL),
			OIDCAudience:  stringWithDefault(lookup, "SHOP_OIDC_AUDIENCE", ""),
			OIDCIssuers:   csvWithDefault(lookup, "SHOP_OIDC_ISSUERS"),
			ServiceEmails: csvWithDefault(lookup, "SHOP_OIDC_SERVICE_EMAILS"),
		},
		Notifications: NotificationConfig{
			Sink:         strings.ToLower(stringWithDefault(lookup, "SHOP_NOTIFY_SINK", defaultNotifySink)),
			AdminEmail:   stringWithDefault(lookup, "SHOP_ADMIN_EMAIL", ""),
			PubSubTopic:  stringWithDefault(lookup, "SHOP_NOTIFY_PUBSUB_TOPIC", ""),
			KafkaBrokers: csvWithDefault(lookup, "SHOP_NOTIFY_KAFKA_BROKERS"),
			KafkaTopic:   stringWithDefault(lookup, "SHOP_NOTIFY_KAFKA_TOPIC", ""),
		},
		Orders: OrderConfig{
			Currency:       strings.ToUpper(stringWithDefault(lookup, "SHOP_CURRENCY", defaultCurrency)),
			DeliveryWindow: durationWithDefault(lookup, "SHOP_DELIVERY_WINDOW", defaultDeliveryWindow),
		},
		Recommendation: RecommendationConfig{
			RefreshInterval: durationWithDefault(lookup, "SHOP_RECOMMEND_REFRESH_INTERVAL", defaultRecommendRefresh),
			Limit:           intWithDefault(lookup, "SHOP_RECOMMEND_LIMIT", 10),
		},
		Idempotency: IdempotencyConfig{
			Header: stringWithDefault(lookup, "SHOP_IDEMPOTENCY_HEADER", defaultIdempotencyKey),
			TTL:    durationWithDefault(lookup, "SHOP_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
	}

	if cfg.Storage.FirestoreProjectID == "" {
		cfg.Storage.FirestoreProjectID = cfg.Firebase.ProjectID
	}
	if len(cfg.Auth.OIDCIssuers) == 0 {
		cfg.Auth.OIDCIssuers = []string{defaultOIDCIssuer}
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Payments.RazorpayKeySecret", &cfg.Payments.RazorpayKeySecret},
		{"Payments.StripeAPIKey", &cfg.Payments.StripeAPIKey},
		{"Payments.StripeWebhookSecret", &cfg.Payments.StripeWebhookSecret},
		{"Auth.JWTSecret", &cfg.Auth.JWTSecret},
		{"Storage.MongoURI", &cfg.Storage.MongoURI},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
}

func validateConfig(cfg Config) error {
	var missing []string
	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Storage.Backend {
	case BackendFirestore:
		if cfg.Storage.FirestoreProjectID == "" {
			missing = append(missing, "Storage.FirestoreProjectID")
		}
	case BackendMongo:
		if cfg.Storage.MongoURI == "" {
			missing = append(missing, "Storage.MongoURI")
		}
	default:
		missing = append(missing, "Storage.Backend")
	}
	switch cfg.Auth.Provider {
	case AuthProviderJWT:
		if cfg.Auth.JWTSecret == "" {
			missing = append(missing, "Auth.JWTSecret")
		}
	case AuthProviderFirebase:
		if cfg.Firebase.ProjectID == "" {
			missing = append(missing, "Firebase.ProjectID")
		}
	default:
		missing = append(missing, "Auth.Provider")
	}
	if strings.TrimSpace(cfg.Auth.TokenHeader) == "" {
		missing = append(missing, "Auth.TokenHeader")
	}
	switch cfg.Notifications.Sink {
	case SinkLog:
	case SinkPubSub:
		if cfg.Notifications.PubSubTopic == "" {
			missing = append(missing, "Notifications.PubSubTopic")
		}
	case SinkKafka:
		if len(cfg.Notifications.KafkaBrokers) == 0 || cfg.Notifications.KafkaTopic == "" {
			missing = append(missing, "Notifications.KafkaBrokers")
		}
	default:
		missing = append(missing, "Notifications.Sink")
	}
	if !knownGateway(cfg.Payments.DefaultGateway) {
		missing = append(missing, "Payments.DefaultGateway")
	}
	for code, gateway := range cfg.Payments.CurrencyRoutes {
		if _, err := currency.ParseISO(code); err != nil || !knownGateway(gateway) {
			missing = append(missing, "Payments.CurrencyRoutes")
			break
		}
	}
	if _, err := currency.ParseISO(cfg.Orders.Currency); err != nil {
		missing = append(missing, "Orders.Currency")
	}
	if cfg.Orders.DeliveryWindow <= 0 {
		missing = append(missing, "Orders.DeliveryWindow")
	}
	if cfg.Recommendation.Limit <= 0 {
		missing = append(missing, "Recommendation.Limit")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	seen := make(map[string]struct{}, len(required))
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func knownGateway(name string) bool {
	return name == GatewayRazorpay || name == GatewayStripe
}

// currencyRoutes parses "INR=razorpay" pairs. A malformed pair keeps an empty gateway so
// validation reports it.
func currencyRoutes(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	routes := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		code, gateway, _ := strings.Cut(pair, "=")
		routes[strings.ToUpper(strings.TrimSpace(code))] = strings.ToLower(strings.TrimSpace(gateway))
	}
	return routes
}
