// Command seed loads products, discounts and staff accounts from a YAML file into the
// configured document store. Records whose id already exists are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/config"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/observability"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/secrets"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	firestoreRepo "github.com/Navneet1206/E-Commerce-sub000/internal/repositories/firestore"
	mongoRepo "github.com/Navneet1206/E-Commerce-sub000/internal/repositories/mongo"
)

func main() {
	file := flag.String("file", "fixtures.yaml", "path to the YAML fixture file")
	dryRun := flag.Bool("dry-run", false, "validate the fixtures without writing")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("seed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, logger, *file, *dryRun); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, path string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fixtures, err := decodeFixtures(f)
	if err != nil {
		return err
	}
	set, err := fixtures.build(time.Now().UTC(), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	logger.Info("fixtures validated",
		zap.Int("products", len(set.Products)),
		zap.Int("discounts", len(set.Discounts)),
		zap.Int("users", len(set.Users)),
	)
	if dryRun {
		return nil
	}

	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		return err
	}
	defer fetcher.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		return err
	}
	registry, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(context.Background()); err != nil {
			logger.Warn("registry close error", zap.Error(err))
		}
	}()

	report, err := apply(ctx, registry, set)
	logger.Info("seed finished",
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("inserted", report.inserted),
		zap.Int("skipped", report.skipped),
	)
	return err
}

type applyReport struct {
	inserted int
	skipped  int
}

// apply inserts every record, skipping conflicts so the tool can be re-run.
func apply(ctx context.Context, registry repositories.Registry, set seedSet) (applyReport, error) {
	var report applyReport
	record := func(kind, id string, err error) error {
		switch {
		case err == nil:
			report.inserted++
			return nil
		case isConflict(err):
			report.skipped++
			return nil
		default:
			return fmt.Errorf("insert %s %s: %w", kind, id, err)
		}
	}

	for _, product := range set.Products {
		if err := record("product", product.ID, registry.Products().Insert(ctx, product)); err != nil {
			return report, err
		}
	}
	for _, user := range set.Users {
		if err := record("user", user.ID, registry.Users().Insert(ctx, user)); err != nil {
			return report, err
		}
	}
	for _, discount := range set.Discounts {
		if err := record("discount", discount.ID, registry.Discounts().Insert(ctx, discount)); err != nil {
			return report, err
		}
	}
	return report, nil
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func openRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, error) {
	if cfg.Storage.Backend == config.BackendMongo {
		client, err := pmongo.Connect(ctx, pmongo.Config{URI: cfg.Storage.MongoURI, Database: cfg.Storage.MongoDatabase})
		if err != nil {
			return nil, err
		}
		registry, err := mongoRepo.NewRegistry(client)
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		if err := registry.EnsureIndexes(ctx); err != nil {
			_ = registry.Close(ctx)
			return nil, err
		}
		return registry, nil
	}
	provider := pfirestore.NewProvider(pfirestore.Config{
		ProjectID:    cfg.Storage.FirestoreProjectID,
		EmulatorHost: cfg.Storage.FirestoreEmulatorHost,
	})
	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return registry, nil
}
