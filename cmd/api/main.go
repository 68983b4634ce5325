package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Navneet1206/E-Commerce-sub000/internal/handlers"
	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/config"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/idempotency"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/jobs"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/observability"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/secrets"
	platformstorage "github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	firestoreRepo "github.com/Navneet1206/E-Commerce-sub000/internal/repositories/firestore"
	mongoRepo "github.com/Navneet1206/E-Commerce-sub000/internal/repositories/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

const (
	idempotencyCollection     = "idempotency_keys"
	idempotencyCleanupEvery   = time.Hour
	idempotencyCleanupBatch   = 200
	storeName                 = "Forever"
	secretHealthReference     = "secret://system/healthz?version=latest"
	defaultSecretFallbackFile = ".secrets.local"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)
	eventLogger := observability.EventLogger(logger.Named("services"))

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise storage backend", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.close(closeCtx); err != nil {
			logger.Warn("storage backend close error", zap.Error(err))
		}
	}()
	registry := backend.registry

	systemService, err := newSystemService(cfg, registry, fetcher, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	idempotencyMiddleware := idempotency.Middleware(
		backend.idempotency,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.EventLogger(logger.Named("idempotency"))),
	)

	// Background workers share one cancellation scope so shutdown can drain them together.
	workerCtx, workerCancel := context.WithCancel(observability.WithLogger(context.Background(), logger))
	var workerWG sync.WaitGroup

	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		runIdempotencyCleanup(workerCtx, logger.Named("idempotency"), backend.idempotency)
	}()

	tokenIssuer, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token issuer", zap.Error(err))
	}
	verifiers := auth.Verifiers{tokenIssuer}
	if cfg.Auth.Provider == config.AuthProviderFirebase {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, auth.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		verifiers = append(verifiers, firebaseVerifier)
	}
	authenticator := auth.NewAuthenticator(verifiers, auth.WithTokenHeader(cfg.Auth.TokenHeader))
	oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg)

	manager, stripeProvider := buildPaymentManager(logger.Named("payments"), cfg)

	publisher, closePublisher, err := buildEmailPublisher(ctx, logger.Named("notifications"), cfg)
	if err != nil {
		logger.Fatal("failed to initialise email publisher", zap.Error(err))
	}
	defer closePublisher()

	images, closeImages, err := buildImageUploader(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise image uploader", zap.Error(err))
	}
	defer closeImages()

	notifier, err := services.NewEmailNotifier(services.EmailNotifierDeps{
		Publisher:  publisher,
		Users:      registry.Users(),
		AdminEmail: cfg.Notifications.AdminEmail,
		StoreName:  storeName,
		Logger:     eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise notifier", zap.Error(err))
	}
	metrics := observability.NewOrderMetrics(logger.Named("metrics"))

	recommender, err := services.NewRecommendationEngine(services.RecommendationEngineDeps{
		Orders:   registry.Orders(),
		Products: registry.Products(),
		Limit:    cfg.Recommendation.Limit,
		Logger:   eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise recommendation engine", zap.Error(err))
	}
	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		recommender.Run(workerCtx, cfg.Recommendation.RefreshInterval)
	}()

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: registry.Products(),
		Images:   images,
		Logger:   eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	userService, err := services.NewUserService(services.UserServiceDeps{
		Users:    registry.Users(),
		Products: registry.Products(),
		Tokens:   tokenIssuer,
		Logger:   eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise user service", zap.Error(err))
	}
	discountService, err := services.NewDiscountService(services.DiscountServiceDeps{
		Discounts: registry.Discounts(),
		Users:     registry.Users(),
		Logger:    eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise discount service", zap.Error(err))
	}
	stockLedger, err := services.NewStockLedger(services.StockLedgerDeps{
		Products: registry.Products(),
		Logger:   eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise stock ledger", zap.Error(err))
	}

	orderDeps := services.OrderServiceDeps{
		Orders:         registry.Orders(),
		Users:          registry.Users(),
		Stock:          stockLedger,
		Prices:         discountService,
		Notifier:       notifier,
		Metrics:        metrics,
		Recommender:    recommender,
		Currency:       cfg.Orders.Currency,
		DeliveryWindow: cfg.Orders.DeliveryWindow,
		Logger:         eventLogger,
	}
	paymentDeps := services.PaymentServiceDeps{
		Orders:      registry.Orders(),
		Users:       registry.Users(),
		Stock:       stockLedger,
		Notifier:    notifier,
		Metrics:     metrics,
		Recommender: recommender,
		Logger:      eventLogger,
	}
	// Interface fields stay nil when no gateway is configured so the services report
	// ErrPaymentNotConfigured instead of dereferencing a typed nil.
	if manager != nil {
		orderDeps.Payments = manager
		paymentDeps.Payments = manager
	}
	if stripeProvider != nil {
		paymentDeps.Webhooks = stripeProvider
	}
	orderService, err := services.NewOrderService(orderDeps)
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	paymentService, err := services.NewPaymentService(paymentDeps)
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}
	workflowService, err := services.NewOrderWorkflowService(services.OrderWorkflowServiceDeps{
		Orders:   registry.Orders(),
		Notifier: notifier,
		Logger:   eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order workflow service", zap.Error(err))
	}
	returnService, err := services.NewReturnService(services.ReturnServiceDeps{
		Returns: registry.Returns(),
		Orders:  registry.Orders(),
		Images:  images,
		Logger:  eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise return service", zap.Error(err))
	}

	productHandlers := handlers.NewProductHandlers(authenticator, catalogService)
	userHandlers := handlers.NewUserHandlers(authenticator, userService, recommender)
	cartHandlers := handlers.NewCartHandlers(authenticator, userService)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService, paymentService, workflowService,
		handlers.WithOrderIdempotency(idempotencyMiddleware, cfg.Idempotency.Header),
	)
	discountHandlers := handlers.NewDiscountHandlers(authenticator, discountService)
	returnHandlers := handlers.NewReturnHandlers(authenticator, returnService)
	webhookHandlers := handlers.NewWebhookHandlers(paymentService)
	internalHandlers := handlers.NewInternalHandlers(recommender)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithCORS(cfg.Server.CORSOrigins),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithRoutes(handlers.GroupProduct, productHandlers.Routes),
		handlers.WithRoutes(handlers.GroupUser, userHandlers.Routes),
		handlers.WithRoutes(handlers.GroupCart, cartHandlers.Routes),
		handlers.WithRoutes(handlers.GroupOrder, orderHandlers.Routes),
		handlers.WithRoutes(handlers.GroupDiscount, discountHandlers.Routes),
		handlers.WithRoutes(handlers.GroupReturn, returnHandlers.Routes),
		handlers.WithRoutes(handlers.GroupWebhook, webhookHandlers.Routes),
		handlers.WithRoutes(handlers.GroupInternal, internalHandlers.Routes, oidcMiddleware),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(
		zap.String("addr", server.Addr),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("environment", cfg.Environment),
	)
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	workerCancel()
	workerWG.Wait()
}

// storageBackend bundles the repositories and idempotency store of one document database.
type storageBackend struct {
	registry    repositories.Registry
	idempotency idempotency.Store
	close       func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config) (storageBackend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		client, err := pmongo.Connect(ctx, pmongo.Config{URI: cfg.Storage.MongoURI, Database: cfg.Storage.MongoDatabase})
		if err != nil {
			return storageBackend{}, err
		}
		registry, err := mongoRepo.NewRegistry(client)
		if err != nil {
			_ = client.Close(ctx)
			return storageBackend{}, err
		}
		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := registry.EnsureIndexes(indexCtx); err != nil {
			_ = client.Close(ctx)
			return storageBackend{}, fmt.Errorf("ensure indexes: %w", err)
		}
		store := idempotency.NewMongoStore(client, idempotencyCollection)
		if err := store.EnsureIndexes(indexCtx); err != nil {
			_ = client.Close(ctx)
			return storageBackend{}, fmt.Errorf("ensure idempotency indexes: %w", err)
		}
		return storageBackend{registry: registry, idempotency: store, close: registry.Close}, nil
	default:
		provider := pfirestore.NewProvider(pfirestore.Config{
			ProjectID:    cfg.Storage.FirestoreProjectID,
			EmulatorHost: cfg.Storage.FirestoreEmulatorHost,
		})
		if _, err := provider.Client(ctx); err != nil {
			return storageBackend{}, err
		}
		registry, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close()
			return storageBackend{}, err
		}
		store := idempotency.NewFirestoreStore(provider, idempotency.WithCollection(idempotencyCollection))
		return storageBackend{registry: registry, idempotency: store, close: registry.Close}, nil
	}
}

func runIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store idempotency.Store) {
	ticker := time.NewTicker(idempotencyCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), idempotencyCleanupBatch)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func buildPaymentManager(logger *zap.Logger, cfg config.Config) (*payments.Manager, *payments.StripeProvider) {
	providerLogger := observability.EventLogger(logger)
	providers := make(map[string]payments.Provider, 2)

	if cfg.Payments.RazorpayKeyID != "" && cfg.Payments.RazorpayKeySecret != "" {
		razorpay, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
			KeyID:     cfg.Payments.RazorpayKeyID,
			KeySecret: cfg.Payments.RazorpayKeySecret,
			Logger:    providerLogger,
		})
		if err != nil {
			logger.Warn("payments: razorpay disabled", zap.Error(err))
		} else {
			providers[payments.ProviderRazorpay] = razorpay
		}
	}

	var stripeProvider *payments.StripeProvider
	if cfg.Payments.StripeAPIKey != "" {
		provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:         cfg.Payments.StripeAPIKey,
			PublishableKey: cfg.Payments.StripePublishableKey,
			WebhookSecret:  cfg.Payments.StripeWebhookSecret,
			Logger:         providerLogger,
		})
		if err != nil {
			logger.Warn("payments: stripe disabled", zap.Error(err))
		} else {
			stripeProvider = provider
			providers[payments.ProviderStripe] = provider
		}
	}

	if len(providers) == 0 {
		logger.Warn("payments: no gateway configured; only cash on delivery is available")
		return nil, nil
	}
	manager, err := payments.NewManager(providers,
		payments.WithDefaultProvider(cfg.Payments.DefaultGateway),
		payments.WithCurrencyRoutes(cfg.Payments.CurrencyRoutes),
	)
	if err != nil {
		logger.Warn("payments: manager init failed", zap.Error(err))
		return nil, stripeProvider
	}
	return manager, stripeProvider
}

func buildEmailPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config) (services.EmailPublisher, func(), error) {
	switch cfg.Notifications.Sink {
	case config.SinkPubSub:
		client, err := pubsub.NewClient(ctx, traceProjectID(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Notifications.PubSubTopic)
		publisher, err := jobs.NewPubSubEmailPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return publisher, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}, nil
	case config.SinkKafka:
		publisher, err := jobs.NewKafkaEmailPublisher(cfg.Notifications.KafkaBrokers, cfg.Notifications.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka writer close error", zap.Error(err))
			}
		}, nil
	default:
		return jobs.NewLogEmailPublisher(logger), func() {}, nil
	}
}

// buildImageUploader returns a nil uploader when no bucket is configured; image uploads then
// fail with ErrImageStoreNotConfigured while image-less requests keep working.
func buildImageUploader(ctx context.Context, cfg config.Config) (services.ImageUploader, func(), error) {
	bucket := strings.TrimSpace(cfg.Objects.ReturnsBucket)
	if bucket == "" {
		return nil, func() {}, nil
	}
	client, err := cloudstorage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("storage client: %w", err)
	}
	uploader, err := platformstorage.NewUploader(client, bucket, platformstorage.WithPublicBaseURL(cfg.Objects.PublicBaseURL))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return uploader, func() { _ = client.Close() }, nil
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["SHOP_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["SHOP_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func newSystemService(cfg config.Config, registry repositories.Registry, fetcher *secrets.Fetcher, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if registry != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     cfg.Storage.Backend,
			Critical: true,
			Timeout:  1500 * time.Millisecond,
			Check:    registry.Ping,
		})
	}
	if fetcher != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				if errors.Is(err, secrets.ErrNotFound) {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

// buildOIDCMiddleware always returns a guard. A missing audience rejects every internal call.
func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := observability.NewPrintfAdapter(logger)
	cache := auth.NewJWKSCache(cfg.Auth.OIDCJWKSURL)
	validator := auth.NewOIDCValidator(cache, auth.WithOIDCLogger(adapter))

	audience := strings.TrimSpace(cfg.Auth.OIDCAudience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	if len(cfg.Auth.ServiceEmails) == 0 {
		logger.Warn("auth: no scheduler service accounts configured; any Google-signed token for the audience is accepted")
	}
	return validator.RequireOIDC(audience, cfg.Auth.OIDCIssuers, cfg.Auth.ServiceEmails)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Storage.FirestoreProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("SHOP_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("SHOP_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("SHOP_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = defaultSecretFallbackFile
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile := lookup("SHOP_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists secrets that must resolve to a value. Login always issues a
// signed token, so the JWT secret is required even when Firebase tokens are accepted.
func requiredSecretNames(env map[string]string) []string {
	required := []string{"Auth.JWTSecret"}
	if strings.TrimSpace(env["SHOP_RAZORPAY_KEY_ID"]) != "" {
		required = append(required, "Payments.RazorpayKeySecret")
	}
	if strings.TrimSpace(env["SHOP_STRIPE_API_KEY"]) != "" {
		required = append(required, "Payments.StripeWebhookSecret")
	}
	if strings.EqualFold(strings.TrimSpace(env["SHOP_STORAGE_BACKEND"]), config.BackendMongo) {
		required = append(required, "Storage.MongoURI")
	}
	return required
}
