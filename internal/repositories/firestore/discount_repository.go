package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const discountCollection = "discounts"

type DiscountRepository struct {
	coll *pfirestore.Collection[discountDocument]
}

var _ repositories.DiscountRepository = (*DiscountRepository)(nil)

func NewDiscountRepository(provider *pfirestore.Provider) (*DiscountRepository, error) {
	if provider == nil {
		return nil, errors.New("discount repository requires firestore provider")
	}
	return &DiscountRepository{coll: pfirestore.NewCollection[discountDocument](provider, discountCollection)}, nil
}

func (r *DiscountRepository) Insert(ctx context.Context, d domain.Discount) error {
	return r.coll.Create(ctx, d.ID, discountDocument{
		Type:       string(d.Type),
		UserID:     d.UserID,
		MinPrice:   moneyString(d.MinPrice),
		MaxPrice:   moneyString(d.MaxPrice),
		Percentage: d.Percentage.String(),
		CreatedBy:  d.CreatedBy,
		CreatedAt:  d.CreatedAt,
	})
}

func (r *DiscountRepository) Delete(ctx context.Context, discountID string) error {
	return r.coll.Delete(ctx, discountID)
}

func (r *DiscountRepository) List(ctx context.Context, filter repositories.DiscountFilter) ([]domain.Discount, error) {
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Type != "" {
			q = q.Where("type", "==", string(filter.Type))
		}
		if filter.UserID != "" {
			q = q.Where("userId", "==", filter.UserID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	discounts := make([]domain.Discount, 0, len(docs))
	for _, doc := range docs {
		discounts = append(discounts, domain.Discount{
			ID:         doc.ID,
			Type:       domain.DiscountType(doc.Data.Type),
			UserID:     doc.Data.UserID,
			MinPrice:   parseMoney(doc.Data.MinPrice),
			MaxPrice:   parseMoney(doc.Data.MaxPrice),
			Percentage: parseMoney(doc.Data.Percentage),
			CreatedBy:  doc.Data.CreatedBy,
			CreatedAt:  doc.Data.CreatedAt,
		})
	}
	return discounts, nil
}

type discountDocument struct {
	Type       string    `firestore:"type"`
	UserID     string    `firestore:"userId,omitempty"`
	MinPrice   string    `firestore:"minPrice"`
	MaxPrice   string    `firestore:"maxPrice"`
	Percentage string    `firestore:"percentage"`
	CreatedBy  string    `firestore:"createdBy"`
	CreatedAt  time.Time `firestore:"createdAt"`
}
