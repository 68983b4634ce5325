package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	userIDPrefix      = "usr_"
	minPasswordLength = 8
	maxCartQuantity   = 99
)

// UserServiceDeps bundles collaborators required to construct the user service.
type UserServiceDeps struct {
	Users       repositories.UserRepository
	Products    repositories.ProductRepository
	Tokens      TokenIssuer
	BcryptCost  int
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	tokens   TokenIssuer
	cost     int
	clock    func() time.Time
	newID    func() string
	logger   EventLogger
}

func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("user service: product repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		users:    deps.Users,
		products: deps.Products,
		tokens:   deps.Tokens,
		cost:     cost,
		clock:    utcClock(deps.Clock),
		newID:    idGenerator(deps.IDGenerator),
		logger:   loggerOrNop(deps.Logger),
	}, nil
}

func (s *userService) Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error) {
	name := textutil.PlainText(cmd.Name, 120)
	if name == "" {
		return AuthResult{}, fmt.Errorf("%w: name is required", ErrUserInvalidInput)
	}
	email := domain.NormalizeEmail(cmd.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return AuthResult{}, fmt.Errorf("%w: email is invalid", ErrUserInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return AuthResult{}, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("user: hash password: %w", err)
	}

	user := User{
		ID:           userIDPrefix + s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Cart:         Cart{},
		Wishlist:     []string{},
		CreatedAt:    s.clock(),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return AuthResult{}, mapRepositoryError(err, nil, ErrUserConflict)
	}
	s.logger(ctx, "user.registered", map[string]any{"userId": user.ID})
	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err != nil {
		if isNotFound(err) {
			return AuthResult{}, ErrUserInvalidCredentials
		}
		return AuthResult{}, mapRepositoryError(err, nil, nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)) != nil {
		return AuthResult{}, ErrUserInvalidCredentials
	}
	return s.issue(user)
}

func (s *userService) issue(user User) (AuthResult, error) {
	token, expires, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("user: issue token: %w", err)
	}
	user.PasswordHash = ""
	return AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}

func (s *userService) GetCart(ctx context.Context, userID string) (Cart, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Cart == nil {
		return Cart{}, nil
	}
	return user.Cart, nil
}

// AddToCart increments the quantity for a product size that exists in the catalog.
func (s *userService) AddToCart(ctx context.Context, cmd CartItemCommand) (Cart, error) {
	if err := s.requireSize(ctx, cmd.ProductID, cmd.Size); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	cart := user.Cart.Clone()
	qty := cart.Quantity(cmd.ProductID, cmd.Size) + 1
	if qty > maxCartQuantity {
		return nil, fmt.Errorf("%w: quantity cannot exceed %d", ErrUserInvalidInput, maxCartQuantity)
	}
	cart.Set(cmd.ProductID, cmd.Size, qty)
	if err := s.users.UpdateCart(ctx, user.ID, cart); err != nil {
		return nil, mapRepositoryError(err, ErrUserNotFound, nil)
	}
	return cart, nil
}

// UpdateCart sets the quantity for a product size. Zero removes the entry.
func (s *userService) UpdateCart(ctx context.Context, cmd CartItemCommand) (Cart, error) {
	if cmd.Quantity < 0 || cmd.Quantity > maxCartQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", ErrUserInvalidInput, maxCartQuantity)
	}
	user, err := s.load(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if cmd.Quantity > 0 {
		if err := s.requireSize(ctx, cmd.ProductID, cmd.Size); err != nil {
			return nil, err
		}
	}
	cart := user.Cart.Clone()
	cart.Set(cmd.ProductID, cmd.Size, cmd.Quantity)
	if err := s.users.UpdateCart(ctx, user.ID, cart); err != nil {
		return nil, mapRepositoryError(err, ErrUserNotFound, nil)
	}
	return cart, nil
}

func (s *userService) GetWishlist(ctx context.Context, userID string) ([]string, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Wishlist == nil {
		return []string{}, nil
	}
	return user.Wishlist, nil
}

// ToggleWishlist adds the product when absent and removes it when present.
func (s *userService) ToggleWishlist(ctx context.Context, userID, productID string) (WishlistResult, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return WishlistResult{}, fmt.Errorf("%w: productId is required", ErrUserInvalidInput)
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return WishlistResult{}, err
	}
	list := slices.Clone(user.Wishlist)
	added := false
	if idx := slices.Index(list, productID); idx >= 0 {
		list = slices.Delete(list, idx, idx+1)
	} else {
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			return WishlistResult{}, mapRepositoryError(err, ErrProductNotFound, nil)
		}
		list = append(list, productID)
		added = true
	}
	if list == nil {
		list = []string{}
	}
	if err := s.users.UpdateWishlist(ctx, user.ID, list); err != nil {
		return WishlistResult{}, mapRepositoryError(err, ErrUserNotFound, nil)
	}
	return WishlistResult{ProductIDs: list, Added: added}, nil
}

func (s *userService) load(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, mapRepositoryError(err, ErrUserNotFound, nil)
	}
	return user, nil
}

func (s *userService) requireSize(ctx context.Context, productID, size string) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(size) == "" {
		return fmt.Errorf("%w: productId and size are required", ErrUserInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return mapRepositoryError(err, ErrProductNotFound, nil)
	}
	if _, ok := product.SizeEntry(size); !ok {
		return fmt.Errorf("%w: size %s is not offered for %s", ErrUserInvalidInput, size, product.Name)
	}
	return nil
}
