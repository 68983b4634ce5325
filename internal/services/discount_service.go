package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const discountIDPrefix = "dsc_"

var maxPercentage = decimal.NewFromInt(100)

// DiscountServiceDeps bundles collaborators required to construct the discount service.
type DiscountServiceDeps struct {
	Discounts   repositories.DiscountRepository
	Users       repositories.UserRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type discountService struct {
	discounts repositories.DiscountRepository
	users     repositories.UserRepository
	clock     func() time.Time
	newID     func() string
	logger    EventLogger
}

// NewDiscountService wires dependencies into a concrete DiscountService implementation.
func NewDiscountService(deps DiscountServiceDeps) (DiscountService, error) {
	if deps.Discounts == nil {
		return nil, errors.New("discount service: discount repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("discount service: user repository is required")
	}
	return &discountService{
		discounts: deps.Discounts,
		users:     deps.Users,
		clock:     utcClock(deps.Clock),
		newID:     idGenerator(deps.IDGenerator),
		logger:    loggerOrNop(deps.Logger),
	}, nil
}

// CreateDiscount validates the band and percentage before anything is persisted.
func (s *discountService) CreateDiscount(ctx context.Context, cmd CreateDiscountCommand) (Discount, error) {
	userID := strings.TrimSpace(cmd.UserID)
	switch cmd.Type {
	case domain.DiscountTypeGlobal:
		if userID != "" {
			return Discount{}, fmt.Errorf("%w: global discounts cannot target a user", ErrDiscountInvalidInput)
		}
	case domain.DiscountTypeUser:
		if userID == "" {
			return Discount{}, fmt.Errorf("%w: userId is required for user discounts", ErrDiscountInvalidInput)
		}
	default:
		return Discount{}, fmt.Errorf("%w: type must be global or user", ErrDiscountInvalidInput)
	}
	if cmd.MinPrice.IsNegative() {
		return Discount{}, fmt.Errorf("%w: minPrice must not be negative", ErrDiscountInvalidInput)
	}
	if !cmd.MinPrice.LessThan(cmd.MaxPrice) {
		return Discount{}, fmt.Errorf("%w: minPrice must be less than maxPrice", ErrDiscountInvalidInput)
	}
	if cmd.Percentage.IsNegative() || cmd.Percentage.GreaterThan(maxPercentage) {
		return Discount{}, fmt.Errorf("%w: percentage must be between 0 and 100", ErrDiscountInvalidInput)
	}
	if userID != "" {
		if _, err := s.users.FindByID(ctx, userID); err != nil {
			if isNotFound(err) {
				return Discount{}, fmt.Errorf("%w: user %s does not exist", ErrDiscountInvalidInput, userID)
			}
			return Discount{}, mapRepositoryError(err, nil, nil)
		}
	}

	discount := Discount{
		ID:         discountIDPrefix + s.newID(),
		Type:       cmd.Type,
		UserID:     userID,
		MinPrice:   cmd.MinPrice,
		MaxPrice:   cmd.MaxPrice,
		Percentage: cmd.Percentage,
		CreatedBy:  cmd.ActorID,
		CreatedAt:  s.clock(),
	}
	if err := s.discounts.Insert(ctx, discount); err != nil {
		return Discount{}, mapRepositoryError(err, nil, nil)
	}
	s.logger(ctx, "discount.created", map[string]any{
		"discountId": discount.ID,
		"type":       string(discount.Type),
		"percentage": discount.Percentage.String(),
		"actorId":    cmd.ActorID,
	})
	return discount, nil
}

func (s *discountService) DeleteDiscount(ctx context.Context, discountID string) error {
	discountID = strings.TrimSpace(discountID)
	if discountID == "" {
		return fmt.Errorf("%w: discount id is required", ErrDiscountInvalidInput)
	}
	if err := s.discounts.Delete(ctx, discountID); err != nil {
		return mapRepositoryError(err, ErrDiscountNotFound, nil)
	}
	s.logger(ctx, "discount.deleted", map[string]any{"discountId": discountID})
	return nil
}

func (s *discountService) ListDiscounts(ctx context.Context, filter repositories.DiscountFilter) ([]Discount, error) {
	discounts, err := s.discounts.List(ctx, filter)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	return discounts, nil
}

// Applicable returns the rules whose band contains price for the user and the resulting price.
func (s *discountService) Applicable(ctx context.Context, userID string, price decimal.Decimal) (ApplicableDiscounts, error) {
	if price.IsNegative() {
		return ApplicableDiscounts{}, fmt.Errorf("%w: price must not be negative", ErrDiscountInvalidInput)
	}
	book, err := s.PriceBook(ctx, userID)
	if err != nil {
		return ApplicableDiscounts{}, err
	}
	return ApplicableDiscounts{
		Price:           price,
		EffectivePrice:  book.Price(price),
		UserDiscounts:   applying(book.user, price),
		GlobalDiscounts: applying(book.global, price),
	}, nil
}

// PriceBook loads the user's and the global discounts once so many prices can be resolved.
func (s *discountService) PriceBook(ctx context.Context, userID string) (PriceBook, error) {
	global, err := s.discounts.List(ctx, repositories.DiscountFilter{Type: domain.DiscountTypeGlobal})
	if err != nil {
		return PriceBook{}, mapRepositoryError(err, nil, nil)
	}
	var user []Discount
	if userID = strings.TrimSpace(userID); userID != "" {
		user, err = s.discounts.List(ctx, repositories.DiscountFilter{Type: domain.DiscountTypeUser, UserID: userID})
		if err != nil {
			return PriceBook{}, mapRepositoryError(err, nil, nil)
		}
	}
	return PriceBook{user: user, global: global}, nil
}

// PriceBook resolves effective prices against a fixed set of discounts.
type PriceBook struct {
	user   []Discount
	global []Discount
}

// NewPriceBook builds a PriceBook from explicit discount sets.
func NewPriceBook(user, global []Discount) PriceBook {
	return PriceBook{user: user, global: global}
}

// Price returns the effective price for base.
func (b PriceBook) Price(base decimal.Decimal) decimal.Decimal {
	return domain.EffectivePrice(base, b.user, b.global)
}

func applying(discounts []Discount, price decimal.Decimal) []Discount {
	out := make([]Discount, 0, len(discounts))
	for _, d := range discounts {
		if d.Applies(price) {
			out = append(out, d)
		}
	}
	return out
}
