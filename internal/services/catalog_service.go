package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	productIDPrefix       = "prd_"
	productDescriptionMax = 4000
	productNameMax        = 200
)

// CatalogServiceDeps bundles collaborators required to construct the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Images      ImageUploader
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	images   ImageUploader
	clock    func() time.Time
	newID    func() string
	logger   EventLogger
}

func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	return &catalogService{
		products: deps.Products,
		images:   deps.Images,
		clock:    utcClock(deps.Clock),
		newID:    idGenerator(deps.IDGenerator),
		logger:   loggerOrNop(deps.Logger),
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, mapRepositoryError(err, ErrProductNotFound, nil)
	}
	return product, nil
}

// AddProduct validates sizes are unique with non-negative stock, stores uploaded images and
// inserts the product.
func (s *catalogService) AddProduct(ctx context.Context, cmd AddProductCommand) (Product, error) {
	name := textutil.PlainText(cmd.Name, productNameMax)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	if !cmd.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", ErrProductInvalidInput)
	}
	if len(cmd.Sizes) == 0 {
		return Product{}, fmt.Errorf("%w: at least one size is required", ErrProductInvalidInput)
	}
	sizes := make([]SizeStock, 0, len(cmd.Sizes))
	seen := make(map[string]struct{}, len(cmd.Sizes))
	for _, entry := range cmd.Sizes {
		size := strings.TrimSpace(entry.Size)
		if size == "" {
			return Product{}, fmt.Errorf("%w: size label is required", ErrProductInvalidInput)
		}
		if _, dup := seen[size]; dup {
			return Product{}, fmt.Errorf("%w: size %s is listed twice", ErrProductInvalidInput, size)
		}
		if entry.Stock < 0 {
			return Product{}, fmt.Errorf("%w: stock for size %s must not be negative", ErrProductInvalidInput, size)
		}
		seen[size] = struct{}{}
		sizes = append(sizes, SizeStock{Size: size, Stock: entry.Stock})
	}
	images := make([]string, 0, len(cmd.Images))
	for _, img := range cmd.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	productID := productIDPrefix + s.newID()
	uploaded, err := uploadImages(ctx, s.images, storage.PurposeProductImage,
		storage.PathParams{ProductID: productID}, cmd.Uploads, s.newID, ErrProductInvalidInput)
	if err != nil {
		return Product{}, err
	}
	images = append(images, uploaded...)

	product := Product{
		ID:          productID,
		Name:        name,
		Description: textutil.PlainText(cmd.Description, productDescriptionMax),
		Price:       cmd.Price.Round(2),
		Category:    strings.TrimSpace(cmd.Category),
		SubCategory: strings.TrimSpace(cmd.SubCategory),
		Images:      images,
		Sizes:       sizes,
		Bestseller:  cmd.Bestseller,
		CreatedAt:   s.clock(),
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, mapRepositoryError(err, nil, nil)
	}
	s.logger(ctx, "product.created", map[string]any{"productId": product.ID, "sizes": len(sizes)})
	return product, nil
}

func (s *catalogService) RemoveProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return mapRepositoryError(err, ErrProductNotFound, nil)
	}
	s.logger(ctx, "product.deleted", map[string]any{"productId": productID})
	return nil
}
