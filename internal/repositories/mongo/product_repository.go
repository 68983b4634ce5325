package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	productCollection = "products"
	clampRetries      = 3
)

// ProductRepository stores catalog entries. Stock is decremented with a guarded $inc on the
// matching size element so concurrent writers cannot drive it negative.
type ProductRepository struct {
	coll *mongo.Collection
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(client *pmongo.Client) *ProductRepository {
	return &ProductRepository{coll: client.Collection(productCollection)}
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	_, err := r.coll.InsertOne(ctx, fromDomainProduct(product))
	return pmongo.WrapError("products.insert", err)
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		return domain.Product{}, pmongo.WrapError("products.find", err)
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": productIDs}}, nil)
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": productID})
	if err != nil {
		return pmongo.WrapError("products.delete", err)
	}
	if res.DeletedCount == 0 {
		return pmongo.NotFound("products.delete", "product %s not found", productID)
	}
	return nil
}

func (r *ProductRepository) AdjustStock(ctx context.Context, lines []repositories.StockLine, mode repositories.StockMode) (repositories.StockResult, error) {
	if mode == repositories.StockStrict {
		return repositories.StockResult{}, r.decrementStrict(ctx, lines)
	}
	return r.decrementClamp(ctx, lines)
}

// decrementStrict applies each line with a guarded update. When a line fails, the lines
// already applied are compensated before the stock error is returned.
func (r *ProductRepository) decrementStrict(ctx context.Context, lines []repositories.StockLine) error {
	applied := make([]repositories.StockLine, 0, len(lines))
	for _, line := range lines {
		ok, err := r.guardedDecrement(ctx, line.ProductID, line.Size, line.Quantity)
		if err != nil {
			r.compensate(ctx, applied)
			return err
		}
		if !ok {
			r.compensate(ctx, applied)
			return r.explainShortfall(ctx, line)
		}
		applied = append(applied, line)
	}
	return nil
}

func (r *ProductRepository) decrementClamp(ctx context.Context, lines []repositories.StockLine) (repositories.StockResult, error) {
	var result repositories.StockResult
	for _, line := range lines {
		applied := 0
		for attempt := 0; attempt < clampRetries; attempt++ {
			product, err := r.FindByID(ctx, line.ProductID)
			if err != nil {
				var repoErr repositories.RepositoryError
				if errors.As(err, &repoErr) && repoErr.IsNotFound() {
					break
				}
				return repositories.StockResult{}, err
			}
			entry, ok := product.SizeEntry(line.Size)
			if !ok || entry.Stock == 0 {
				break
			}
			want := line.Quantity
			if entry.Stock < want {
				want = entry.Stock
			}
			done, err := r.guardedDecrement(ctx, line.ProductID, line.Size, want)
			if err != nil {
				return repositories.StockResult{}, err
			}
			if done {
				applied = want
				break
			}
		}
		if applied < line.Quantity {
			result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{
				ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity, Applied: applied,
			})
		}
	}
	return result, nil
}

func (r *ProductRepository) RestoreStock(ctx context.Context, lines []repositories.StockLine) error {
	for _, line := range lines {
		_, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": line.ProductID, "sizes.size": line.Size},
			bson.M{"$inc": bson.M{"sizes.$.stock": line.Quantity}},
		)
		if err != nil {
			return pmongo.WrapError("products.restore_stock", err)
		}
	}
	return nil
}

func (r *ProductRepository) guardedDecrement(ctx context.Context, productID, size string, qty int) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":   productID,
			"sizes": bson.M{"$elemMatch": bson.M{"size": size, "stock": bson.M{"$gte": qty}}},
		},
		bson.M{"$inc": bson.M{"sizes.$.stock": -qty}},
	)
	if err != nil {
		return false, pmongo.WrapError("products.adjust_stock", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *ProductRepository) compensate(ctx context.Context, applied []repositories.StockLine) {
	if len(applied) == 0 {
		return
	}
	// Detached so a cancelled request still returns the units it took.
	_ = r.RestoreStock(context.WithoutCancel(ctx), applied)
}

func (r *ProductRepository) explainShortfall(ctx context.Context, line repositories.StockLine) error {
	product, err := r.FindByID(ctx, line.ProductID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Size, 0, line.Quantity)
		}
		return err
	}
	entry, ok := product.SizeEntry(line.Size)
	var stockErr *repositories.StockError
	if !ok {
		stockErr = repositories.NewStockError(repositories.StockErrorSizeUnavailable, line.ProductID, line.Size, 0, line.Quantity)
	} else {
		stockErr = repositories.NewStockError(repositories.StockErrorInsufficient, line.ProductID, line.Size, entry.Stock, line.Quantity)
	}
	stockErr.Name = product.Name
	return stockErr
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, pmongo.WrapError("products.find", err)
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("products.find", err)
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}

type sizeStockDocument struct {
	Size  string `bson:"size"`
	Stock int    `bson:"stock"`
}

type productDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	SubCategory string               `bson:"sub_category"`
	Images      []string             `bson:"image"`
	Sizes       []sizeStockDocument  `bson:"sizes"`
	Bestseller  bool                 `bson:"bestseller"`
	CreatedAt   time.Time            `bson:"date"`
}

func fromDomainProduct(p domain.Product) productDocument {
	sizes := make([]sizeStockDocument, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, sizeStockDocument{Size: s.Size, Stock: s.Stock})
	}
	return productDocument{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       toDecimal128(p.Price),
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Images:      append([]string{}, p.Images...),
		Sizes:       sizes,
		Bestseller:  p.Bestseller,
		CreatedAt:   p.CreatedAt,
	}
}

func (d productDocument) toDomain() domain.Product {
	sizes := make([]domain.SizeStock, 0, len(d.Sizes))
	for _, s := range d.Sizes {
		sizes = append(sizes, domain.SizeStock{Size: s.Size, Stock: s.Stock})
	}
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       fromDecimal128(d.Price),
		Category:    d.Category,
		SubCategory: d.SubCategory,
		Images:      append([]string(nil), d.Images...),
		Sizes:       sizes,
		Bestseller:  d.Bestseller,
		CreatedAt:   d.CreatedAt,
	}
}
