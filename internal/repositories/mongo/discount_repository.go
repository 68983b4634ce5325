package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const discountCollection = "discounts"

type DiscountRepository struct {
	coll *mongo.Collection
}

var _ repositories.DiscountRepository = (*DiscountRepository)(nil)

func NewDiscountRepository(client *pmongo.Client) *DiscountRepository {
	return &DiscountRepository{coll: client.Collection(discountCollection)}
}

func (r *DiscountRepository) Insert(ctx context.Context, d domain.Discount) error {
	_, err := r.coll.InsertOne(ctx, discountDocument{
		ID:         d.ID,
		Type:       string(d.Type),
		UserID:     d.UserID,
		MinPrice:   toDecimal128(d.MinPrice),
		MaxPrice:   toDecimal128(d.MaxPrice),
		Percentage: toDecimal128(d.Percentage),
		CreatedBy:  d.CreatedBy,
		CreatedAt:  d.CreatedAt,
	})
	return pmongo.WrapError("discounts.insert", err)
}

func (r *DiscountRepository) Delete(ctx context.Context, discountID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": discountID})
	if err != nil {
		return pmongo.WrapError("discounts.delete", err)
	}
	if res.DeletedCount == 0 {
		return pmongo.NotFound("discounts.delete", "discount %s not found", discountID)
	}
	return nil
}

func (r *DiscountRepository) List(ctx context.Context, filter repositories.DiscountFilter) ([]domain.Discount, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	cur, err := r.coll.Find(ctx, query)
	if err != nil {
		return nil, pmongo.WrapError("discounts.list", err)
	}
	var docs []discountDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("discounts.list", err)
	}
	out := make([]domain.Discount, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.Discount{
			ID:         doc.ID,
			Type:       domain.DiscountType(doc.Type),
			UserID:     doc.UserID,
			MinPrice:   fromDecimal128(doc.MinPrice),
			MaxPrice:   fromDecimal128(doc.MaxPrice),
			Percentage: fromDecimal128(doc.Percentage),
			CreatedBy:  doc.CreatedBy,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return out, nil
}

type discountDocument struct {
	ID         string               `bson:"_id"`
	Type       string               `bson:"type"`
	UserID     string               `bson:"user_id,omitempty"`
	MinPrice   primitive.Decimal128 `bson:"min_price"`
	MaxPrice   primitive.Decimal128 `bson:"max_price"`
	Percentage primitive.Decimal128 `bson:"percentage"`
	CreatedBy  string               `bson:"created_by"`
	CreatedAt  time.Time            `bson:"created_at"`
}
