package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// Registry bundles the Firestore repositories around one shared provider.
type Registry struct {
	provider  *pfirestore.Provider
	products  *ProductRepository
	users     *UserRepository
	orders    *OrderRepository
	discounts *DiscountRepository
	returns   *ReturnRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	discounts, err := NewDiscountRepository(provider)
	if err != nil {
		return nil, err
	}
	returns, err := NewReturnRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:  provider,
		products:  products,
		users:     users,
		orders:    orders,
		discounts: discounts,
		returns:   returns,
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Users() repositories.UserRepository         { return r.users }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Discounts() repositories.DiscountRepository { return r.discounts }
func (r *Registry) Returns() repositories.ReturnRepository     { return r.returns }

// Ping reads at most one product to prove the backend answers.
func (r *Registry) Ping(ctx context.Context) error {
	ref, err := r.provider.Collection(ctx, productCollection)
	if err != nil {
		return err
	}
	iter := ref.Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return pfirestore.WrapError("ping", err)
	}
	return nil
}

func (r *Registry) Close(context.Context) error {
	return r.provider.Close()
}
