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

const (
	userCollection      = "users"
	userEmailCollection = "userEmails"
)

// UserRepository stores accounts. A companion userEmails document keyed by the normalised
// email enforces uniqueness.
type UserRepository struct {
	provider *pfirestore.Provider
	users    *pfirestore.Collection[userDocument]
	emails   *pfirestore.Collection[userEmailDocument]
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		provider: provider,
		users:    pfirestore.NewCollection[userDocument](provider, userCollection),
		emails:   pfirestore.NewCollection[userEmailDocument](provider, userEmailCollection),
	}, nil
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	email := domain.NormalizeEmail(user.Email)
	userRef, err := r.users.Doc(ctx, user.ID)
	if err != nil {
		return err
	}
	emailRef, err := r.emails.Doc(ctx, email)
	if err != nil {
		return err
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if snap, err := tx.Get(emailRef); err == nil && snap.Exists() {
			return pfirestore.Conflict("users.insert", "email already registered")
		} else if err != nil && !isNotFound(err) {
			return err
		}
		if err := tx.Create(emailRef, userEmailDocument{UserID: user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, fromDomainUser(user))
	})
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	doc, err := r.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	index, err := r.emails.Get(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, err
	}
	return r.FindByID(ctx, index.Data.UserID)
}

func (r *UserRepository) UpdateCart(ctx context.Context, userID string, cart domain.Cart) error {
	return r.users.Update(ctx, userID, []firestore.Update{{Path: "cartData", Value: cartDocument(cart)}})
}

func (r *UserRepository) ClearCart(ctx context.Context, userID string) error {
	return r.users.Update(ctx, userID, []firestore.Update{{Path: "cartData", Value: map[string]map[string]int{}}})
}

func (r *UserRepository) UpdateWishlist(ctx context.Context, userID string, productIDs []string) error {
	if productIDs == nil {
		productIDs = []string{}
	}
	return r.users.Update(ctx, userID, []firestore.Update{{Path: "wishlist", Value: productIDs}})
}

type userEmailDocument struct {
	UserID string `firestore:"userId"`
}

type userDocument struct {
	Name         string                    `firestore:"name"`
	Email        string                    `firestore:"email"`
	PasswordHash string                    `firestore:"password"`
	Role         string                    `firestore:"role"`
	Cart         map[string]map[string]int `firestore:"cartData"`
	Wishlist     []string                  `firestore:"wishlist"`
	Addresses    []addressDocument         `firestore:"addresses"`
	ResetCode    string                    `firestore:"resetCode,omitempty"`
	ResetExpiry  *time.Time                `firestore:"resetExpiry,omitempty"`
	CreatedAt    time.Time                 `firestore:"createdAt"`
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
	wishlist := u.Wishlist
	if wishlist == nil {
		wishlist = []string{}
	}
	return userDocument{
		Name:         u.Name,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Cart:         cartDocument(u.Cart),
		Wishlist:     wishlist,
		Addresses:    addresses,
		ResetCode:    u.ResetCode,
		ResetExpiry:  u.ResetExpiry,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDocument) toDomain(id string) domain.User {
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
		ID:           id,
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

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(pfirestore.WrapError("", err), &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
