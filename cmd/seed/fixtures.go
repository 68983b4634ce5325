package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
)

// fixtureFile is the YAML document accepted by the seed tool.
type fixtureFile struct {
	Products  []productFixture  `yaml:"products"`
	Discounts []discountFixture `yaml:"discounts"`
	Users     []userFixture     `yaml:"users"`
}

type productFixture struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Price       string        `yaml:"price"`
	Category    string        `yaml:"category"`
	SubCategory string        `yaml:"subCategory"`
	Images      []string      `yaml:"images"`
	Bestseller  bool          `yaml:"bestseller"`
	Sizes       []sizeFixture `yaml:"sizes"`
}

type sizeFixture struct {
	Size  string `yaml:"size"`
	Stock int    `yaml:"stock"`
}

type discountFixture struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	UserID     string `yaml:"userId"`
	MinPrice   string `yaml:"minPrice"`
	MaxPrice   string `yaml:"maxPrice"`
	Percentage string `yaml:"percentage"`
}

type userFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// seedSet is the validated, domain-typed content of a fixture file.
type seedSet struct {
	Products  []domain.Product
	Discounts []domain.Discount
	Users     []domain.User
}

func decodeFixtures(r io.Reader) (fixtureFile, error) {
	var file fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return fixtureFile{}, errors.New("fixtures: file is empty")
		}
		return fixtureFile{}, fmt.Errorf("fixtures: %w", err)
	}
	return file, nil
}

// build validates every fixture and converts it. All problems are reported together.
func (f fixtureFile) build(now time.Time, bcryptCost int) (seedSet, error) {
	var (
		set  seedSet
		errs []error
	)
	ids := make(map[string]struct{})
	claim := func(kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%s: id is required", kind)
		}
		key := kind + "/" + id
		if _, dup := ids[key]; dup {
			return fmt.Errorf("%s %s: duplicate id", kind, id)
		}
		ids[key] = struct{}{}
		return nil
	}

	for _, p := range f.Products {
		if err := claim("product", p.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		product, err := p.toDomain(now)
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
			continue
		}
		set.Products = append(set.Products, product)
	}

	emails := make(map[string]struct{})
	for _, u := range f.Users {
		if err := claim("user", u.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		user, err := u.toDomain(now, bcryptCost)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			continue
		}
		if _, dup := emails[user.Email]; dup {
			errs = append(errs, fmt.Errorf("user %s: email %s listed twice", u.ID, user.Email))
			continue
		}
		emails[user.Email] = struct{}{}
		set.Users = append(set.Users, user)
	}

	for _, d := range f.Discounts {
		if err := claim("discount", d.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		discount, err := d.toDomain(now)
		if err != nil {
			errs = append(errs, fmt.Errorf("discount %s: %w", d.ID, err))
			continue
		}
		set.Discounts = append(set.Discounts, discount)
	}

	if len(errs) > 0 {
		return seedSet{}, errors.Join(errs...)
	}
	return set, nil
}

func (p productFixture) toDomain(now time.Time) (domain.Product, error) {
	name := textutil.PlainText(p.Name, 200)
	if name == "" {
		return domain.Product{}, errors.New("name is required")
	}
	price, err := parseAmount("price", p.Price)
	if err != nil {
		return domain.Product{}, err
	}
	if !price.IsPositive() {
		return domain.Product{}, errors.New("price must be greater than zero")
	}
	if len(p.Sizes) == 0 {
		return domain.Product{}, errors.New("at least one size is required")
	}
	seen := make(map[string]struct{}, len(p.Sizes))
	sizes := make([]domain.SizeStock, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		size := strings.TrimSpace(s.Size)
		if size == "" {
			return domain.Product{}, errors.New("size label is required")
		}
		if _, dup := seen[size]; dup {
			return domain.Product{}, fmt.Errorf("size %s listed twice", size)
		}
		if s.Stock < 0 {
			return domain.Product{}, fmt.Errorf("size %s: stock must not be negative", size)
		}
		seen[size] = struct{}{}
		sizes = append(sizes, domain.SizeStock{Size: size, Stock: s.Stock})
	}
	return domain.Product{
		ID:          p.ID,
		Name:        name,
		Description: textutil.PlainText(p.Description, 5000),
		Price:       price,
		Category:    strings.TrimSpace(p.Category),
		SubCategory: strings.TrimSpace(p.SubCategory),
		Images:      append([]string(nil), p.Images...),
		Sizes:       sizes,
		Bestseller:  p.Bestseller,
		CreatedAt:   now,
	}, nil
}

func (d discountFixture) toDomain(now time.Time) (domain.Discount, error) {
	discountType := domain.DiscountType(strings.ToLower(strings.TrimSpace(d.Type)))
	switch discountType {
	case domain.DiscountTypeGlobal:
		if strings.TrimSpace(d.UserID) != "" {
			return domain.Discount{}, errors.New("global discounts must not name a user")
		}
	case domain.DiscountTypeUser:
		if strings.TrimSpace(d.UserID) == "" {
			return domain.Discount{}, errors.New("user discounts require userId")
		}
	default:
		return domain.Discount{}, fmt.Errorf("unknown type %q", d.Type)
	}
	minPrice, err := parseAmount("minPrice", d.MinPrice)
	if err != nil {
		return domain.Discount{}, err
	}
	maxPrice, err := parseAmount("maxPrice", d.MaxPrice)
	if err != nil {
		return domain.Discount{}, err
	}
	percentage, err := parseAmount("percentage", d.Percentage)
	if err != nil {
		return domain.Discount{}, err
	}
	if minPrice.IsNegative() || !minPrice.LessThan(maxPrice) {
		return domain.Discount{}, errors.New("minPrice must be non-negative and less than maxPrice")
	}
	if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Discount{}, errors.New("percentage must be between 0 and 100")
	}
	return domain.Discount{
		ID:         d.ID,
		Type:       discountType,
		UserID:     strings.TrimSpace(d.UserID),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Percentage: percentage,
		CreatedBy:  "seed",
		CreatedAt:  now,
	}, nil
}

func (u userFixture) toDomain(now time.Time, bcryptCost int) (domain.User, error) {
	email := domain.NormalizeEmail(u.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("invalid email %q", u.Email)
	}
	if len(u.Password) < 8 {
		return domain.User{}, errors.New("password must be at least 8 characters")
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(u.Role)))
	if role == "" {
		role = domain.RoleUser
	}
	switch role {
	case domain.RoleUser, domain.RoleAdmin, domain.RoleManager, domain.RoleLogistics:
	default:
		return domain.User{}, fmt.Errorf("unknown role %q", u.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	return domain.User{
		ID:           u.ID,
		Name:         textutil.PlainText(u.Name, 200),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Cart:         domain.Cart{},
		CreatedAt:    now,
	}, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", field, raw)
	}
	return value, nil
}
