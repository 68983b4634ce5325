package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const userCollection = "users"

// UserRepository stores accounts. A unique index on email rejects duplicate registrations.
type UserRepository struct {
	coll *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func NewUserRepository(client *pmongo.Client) *UserRepository {
	return &UserRepository{coll: client.Collection(userCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	_, err := r.coll.InsertOne(ctx, fromDomainUser(user))
	return pmongo.WrapError("users.insert", err)
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) UpdateCart(ctx context.Context, userID string, cart domain.Cart) error {
	return r.set(ctx, "users.update_cart", userID, bson.M{"cart_data": cartDocument(cart)})
}

func (r *UserRepository) ClearCart(ctx context.Context, userID string) error {
	return r.set(ctx, "users.clear_cart", userID, bson.M{"cart_data": bson.M{}})
}

func (r *UserRepository) UpdateWishlist(ctx context.Context, userID string, productIDs []string) error {
	if productIDs == nil {
		productIDs = []string{}
	}
	return r.set(ctx, "users.update_wishlist", userID, bson.M{"wishlist": productIDs})
}

func (r *UserRepository) set(ctx context.Context, op, userID string, fields bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op, "user %s not found", userID)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.User{}, pmongo.WrapError("users.find", err)
	}
	return doc.toDomain(), nil
}

type userDocument struct {
	ID           string                    `bson:"_id"`
	Name         string                    `bson:"name"`
	Email        string                    `bson:"email"`
	PasswordHash string                    `bson:"password"`
	Role         string                    `bson:"role"`
	Cart         map[string]map[string]int `bson:"cart_data"`
	Wishlist     []string                  `bson:"wishlist"`
	Addresses    []addressDocument         `bson:"addresses"`
	ResetCode    string                    `bson:"reset_code,omitempty"`
	ResetExpiry  *time.Time                `bson:"reset_expiry,omitempty"`
	CreatedAt    time.Time                 `bson:"created_at"`
}

func cartDocument(cart domain.Cart) map[string]map[string]int {
	out := make(map[string]map[string]int, len(cart))
	for productID, sizes := range cart {
		out[productID] = sizes
	}
	return out
}

func fromDomainUser(u domain.User) userDocument {
	addresses := make([]addressDocument, 0, len(u.Addresses))
	for _, a := range u.Addresses {
		addresses = append(addresses, fromDomainAddress(a))
	}
	return userDocument{
		ID:           u.ID,
		Name:         u.Name,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Cart:         cartDocument(u.Cart),
		Wishlist:     append([]string{}, u.Wishlist...),
		Addresses:    addresses,
		ResetCode:    u.ResetCode,
		ResetExpiry:  u.ResetExpiry,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDocument) toDomain() domain.User {
	addresses := make([]domain.Address, 0, len(d.Addresses))
	for _, a := range d.Addresses {
		addresses = append(addresses, a.toDomain())
	}
	cart := domain.Cart{}
	for productID, sizes := range d.Cart {
		for size, qty := range sizes {
			cart.Set(productID, size, qty)
		}
	}
	return domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		Cart:         cart,
		Wishlist:     append([]string(nil), d.Wishlist...),
		Addresses:    addresses,
		ResetCode:    d.ResetCode,
		ResetExpiry:  d.ResetExpiry,
		CreatedAt:    d.CreatedAt,
	}
}
