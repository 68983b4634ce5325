package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// Registry bundles the Mongo repositories around one shared client.
type Registry struct {
	client    *pmongo.Client
	products  *ProductRepository
	users     *UserRepository
	orders    *OrderRepository
	discounts *DiscountRepository
	returns   *ReturnRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(client *pmongo.Client) (*Registry, error) {
	if client == nil {
		return nil, errors.New("mongo registry requires client")
	}
	return &Registry{
		client:    client,
		products:  NewProductRepository(client),
		users:     NewUserRepository(client),
		orders:    NewOrderRepository(client),
		discounts: NewDiscountRepository(client),
		returns:   NewReturnRepository(client),
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Users() repositories.UserRepository         { return r.users }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Discounts() repositories.DiscountRepository { return r.discounts }
func (r *Registry) Returns() repositories.ReturnRepository     { return r.returns }

// EnsureIndexes creates the indexes the repositories rely on for uniqueness and paging.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		userCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		orderCollection: {
			{Keys: bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
			{
				Keys: bson.D{{Key: "gateway_order_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"gateway_order_id": bson.M{"$type": "string"}}),
			},
		},
		discountCollection: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		returnCollection: {
			{
				Keys:    bson.D{{Key: "order_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"active": true}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := r.client.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: ensure indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks the primary is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return pmongo.WrapError("ping", r.client.Database().Client().Ping(ctx, readpref.Primary()))
}

func (r *Registry) Close(ctx context.Context) error {
	return r.client.Close(ctx)
}
