package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const productCollection = "products"

// ProductRepository stores catalog entries. Stock lives in the sizes array of each product
// document and is only mutated inside transactions.
type ProductRepository struct {
	provider *pfirestore.Provider
	coll     *pfirestore.Collection[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		coll:     pfirestore.NewCollection[productDocument](provider, productCollection),
	}, nil
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	return r.coll.Create(ctx, product.ID, fromDomainProduct(product))
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.coll.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	docs, err := r.coll.GetAll(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("date", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.coll.Delete(ctx, productID)
}

// AdjustStock reads every referenced product, applies the lines in order against an
// in-memory copy and writes the changed size arrays back, all in one transaction.
func (r *ProductRepository) AdjustStock(ctx context.Context, lines []repositories.StockLine, mode repositories.StockMode) (repositories.StockResult, error) {
	if len(lines) == 0 {
		return repositories.StockResult{}, nil
	}
	var result repositories.StockResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = repositories.StockResult{}
		products, err := r.loadForUpdate(ctx, tx, lines)
		if err != nil {
			return err
		}
		touched := make(map[string]struct{}, len(products))
		for _, line := range lines {
			doc, ok := products[line.ProductID]
			if !ok {
				if mode == repositories.StockStrict {
					return repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Size, 0, line.Quantity)
				}
				result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity})
				continue
			}
			idx := doc.sizeIndex(line.Size)
			if idx < 0 {
				if mode == repositories.StockStrict {
					stockErr := repositories.NewStockError(repositories.StockErrorSizeUnavailable, line.ProductID, line.Size, 0, line.Quantity)
					stockErr.Name = doc.Name
					return stockErr
				}
				result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity})
				continue
			}
			available := doc.Sizes[idx].Stock
			applied := line.Quantity
			if available < line.Quantity {
				if mode == repositories.StockStrict {
					stockErr := repositories.NewStockError(repositories.StockErrorInsufficient, line.ProductID, line.Size, available, line.Quantity)
					stockErr.Name = doc.Name
					return stockErr
				}
				applied = available
				result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{
					ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity, Applied: applied,
				})
			}
			doc.Sizes[idx].Stock = available - applied
			touched[line.ProductID] = struct{}{}
		}
		return r.writeSizes(ctx, tx, products, touched)
	})
	if err != nil {
		return repositories.StockResult{}, err
	}
	return result, nil
}

// RestoreStock adds quantities back. Lines whose product or size no longer exist are skipped.
func (r *ProductRepository) RestoreStock(ctx context.Context, lines []repositories.StockLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		products, err := r.loadForUpdate(ctx, tx, lines)
		if err != nil {
			return err
		}
		touched := make(map[string]struct{}, len(products))
		for _, line := range lines {
			doc, ok := products[line.ProductID]
			if !ok {
				continue
			}
			if idx := doc.sizeIndex(line.Size); idx >= 0 {
				doc.Sizes[idx].Stock += line.Quantity
				touched[line.ProductID] = struct{}{}
			}
		}
		return r.writeSizes(ctx, tx, products, touched)
	})
}

func (r *ProductRepository) loadForUpdate(ctx context.Context, tx *firestore.Transaction, lines []repositories.StockLine) (map[string]*productDocument, error) {
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(lines))
	refs := make([]*firestore.DocumentRef, 0, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, ref.Doc(id))
	}
	snaps, err := tx.GetAll(refs)
	if err != nil {
		return nil, err
	}
	products := make(map[string]*productDocument, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		decoded, err := pfirestore.Decode[productDocument](snap)
		if err != nil {
			return nil, err
		}
		doc := decoded.Data
		products[decoded.ID] = &doc
	}
	return products, nil
}

func (r *ProductRepository) writeSizes(ctx context.Context, tx *firestore.Transaction, products map[string]*productDocument, touched map[string]struct{}) error {
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return err
	}
	for id := range touched {
		if err := tx.Update(ref.Doc(id), []firestore.Update{{Path: "sizes", Value: products[id].Sizes}}); err != nil {
			return err
		}
	}
	return nil
}

type sizeStockDocument struct {
	Size  string `firestore:"size"`
	Stock int    `firestore:"stock"`
}

type productDocument struct {
	Name        string              `firestore:"name"`
	Description string              `firestore:"description"`
	Price       string              `firestore:"price"`
	Category    string              `firestore:"category"`
	SubCategory string              `firestore:"subCategory"`
	Images      []string            `firestore:"image"`
	Sizes       []sizeStockDocument `firestore:"sizes"`
	Bestseller  bool                `firestore:"bestseller"`
	CreatedAt   time.Time           `firestore:"date"`
}

func (d *productDocument) sizeIndex(size string) int {
	for i, entry := range d.Sizes {
		if entry.Size == size {
			return i
		}
	}
	return -1
}

func fromDomainProduct(p domain.Product) productDocument {
	sizes := make([]sizeStockDocument, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, sizeStockDocument{Size: s.Size, Stock: s.Stock})
	}
	return productDocument{
		Name:        p.Name,
		Description: p.Description,
		Price:       moneyString(p.Price),
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Images:      append([]string(nil), p.Images...),
		Sizes:       sizes,
		Bestseller:  p.Bestseller,
		CreatedAt:   p.CreatedAt,
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	sizes := make([]domain.SizeStock, 0, len(d.Sizes))
	for _, s := range d.Sizes {
		sizes = append(sizes, domain.SizeStock{Size: s.Size, Stock: s.Stock})
	}
	return domain.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       parseMoney(d.Price),
		Category:    d.Category,
		SubCategory: d.SubCategory,
		Images:      append([]string(nil), d.Images...),
		Sizes:       sizes,
		Bestseller:  d.Bestseller,
		CreatedAt:   d.CreatedAt,
	}
}
