package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

var seedNow = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func loadTestdata(t *testing.T) seedSet {
	t.Helper()
	f, err := os.Open("testdata/fixtures.yaml")
	require.NoError(t, err)
	defer f.Close()

	fixtures, err := decodeFixtures(f)
	require.NoError(t, err)
	set, err := fixtures.build(seedNow, bcrypt.MinCost)
	require.NoError(t, err)
	return set
}

func TestBuildConvertsFixtures(t *testing.T) {
	set := loadTestdata(t)

	require.Len(t, set.Products, 2)
	shirt := set.Products[0]
	require.Equal(t, "prd_linen_shirt", shirt.ID)
	require.Equal(t, "1299.5", shirt.Price.String())
	require.Equal(t, "Breathable linen shirt for summer.", shirt.Description)
	require.Equal(t, []domain.SizeStock{{Size: "M", Stock: 12}, {Size: "L", Stock: 4}}, shirt.Sizes)
	require.True(t, shirt.Bestseller)
	require.Equal(t, seedNow, shirt.CreatedAt)
	require.Equal(t, "2499", set.Products[1].Price.String())

	require.Len(t, set.Users, 2)
	admin := set.Users[0]
	require.Equal(t, "admin@example.com", admin.Email)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("change-me-now")))
	require.NotNil(t, admin.Cart)
	require.Equal(t, domain.RoleLogistics, set.Users[1].Role)

	require.Len(t, set.Discounts, 2)
	require.Equal(t, domain.DiscountTypeGlobal, set.Discounts[0].Type)
	require.Equal(t, "12.5", set.Discounts[1].Percentage.String())
	require.Equal(t, "usr_admin", set.Discounts[1].UserID)
	require.Equal(t, "seed", set.Discounts[1].CreatedBy)
}

func TestBuildReportsEveryProblem(t *testing.T) {
	raw := `
products:
  - id: prd_1
    name: Tee
    price: 0
    sizes: [{size: M, stock: 1}]
  - id: prd_2
    name: Cap
    price: 10
    sizes: [{size: One, stock: 1}, {size: One, stock: 2}]
  - id: prd_2
    name: Duplicate
    price: 10
    sizes: [{size: One, stock: 1}]
users:
  - id: usr_1
    email: a@example.com
    password: long-enough
    role: owner
discounts:
  - id: dsc_1
    type: user
    minPrice: 0
    maxPrice: 100
    percentage: 5
  - id: dsc_2
    type: global
    minPrice: 100
    maxPrice: 50
    percentage: 150
`
	fixtures, err := decodeFixtures(strings.NewReader(raw))
	require.NoError(t, err)

	_, err = fixtures.build(seedNow, bcrypt.MinCost)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"product prd_1: price must be greater than zero",
		"product prd_2: size One listed twice",
		"product prd_2: duplicate id",
		`user usr_1: unknown role "owner"`,
		"discount dsc_1: user discounts require userId",
		"discount dsc_2: minPrice must be non-negative and less than maxPrice",
	} {
		require.Contains(t, msg, want)
	}
}

func TestDecodeFixturesRejectsUnknownFields(t *testing.T) {
	_, err := decodeFixtures(strings.NewReader("products:\n  - id: prd_1\n    colour: red\n"))
	require.Error(t, err)

	_, err = decodeFixtures(strings.NewReader(""))
	require.EqualError(t, err, "fixtures: file is empty")
}

func TestApplySkipsExistingRecords(t *testing.T) {
	set := loadTestdata(t)
	registry := newFakeRegistry()
	registry.products.existing["prd_linen_shirt"] = true
	registry.users.existing["usr_ops"] = true

	report, err := apply(context.Background(), registry, set)
	require.NoError(t, err)
	require.Equal(t, applyReport{inserted: 4, skipped: 2}, report)
	require.Equal(t, []string{"prd_denim_jacket"}, registry.products.inserted)
	require.Equal(t, []string{"usr_admin"}, registry.users.inserted)
	require.Equal(t, []string{"dsc_festive", "dsc_loyal"}, registry.discounts.inserted)
}

func TestApplyStopsOnStoreFailure(t *testing.T) {
	set := loadTestdata(t)
	registry := newFakeRegistry()
	registry.users.failWith = errors.New("deadline exceeded")

	report, err := apply(context.Background(), registry, set)
	require.ErrorContains(t, err, "insert user usr_admin: deadline exceeded")
	require.Equal(t, 2, report.inserted)
	require.Empty(t, registry.discounts.inserted)
}

type fakeInserts struct {
	existing map[string]bool
	inserted []string
	failWith error
}

func (f *fakeInserts) insert(id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.existing[id] {
		return pfirestore.Conflict("insert", "document %s already exists", id)
	}
	f.inserted = append(f.inserted, id)
	return nil
}

type fakeProducts struct {
	repositories.ProductRepository
	*fakeInserts
}

func (f fakeProducts) Insert(_ context.Context, p domain.Product) error { return f.insert(p.ID) }

type fakeUsers struct {
	repositories.UserRepository
	*fakeInserts
}

func (f fakeUsers) Insert(_ context.Context, u domain.User) error { return f.insert(u.ID) }

type fakeDiscounts struct {
	repositories.DiscountRepository
	*fakeInserts
}

func (f fakeDiscounts) Insert(_ context.Context, d domain.Discount) error { return f.insert(d.ID) }

type fakeRegistry struct {
	products  *fakeInserts
	users     *fakeInserts
	discounts *fakeInserts
}

func newFakeRegistry() *fakeRegistry {
	fresh := func() *fakeInserts { return &fakeInserts{existing: map[string]bool{}} }
	return &fakeRegistry{products: fresh(), users: fresh(), discounts: fresh()}
}

func (r *fakeRegistry) Close(context.Context) error { return nil }
func (r *fakeRegistry) Ping(context.Context) error  { return nil }
func (r *fakeRegistry) Products() repositories.ProductRepository {
	return fakeProducts{fakeInserts: r.products}
}
func (r *fakeRegistry) Users() repositories.UserRepository { return fakeUsers{fakeInserts: r.users} }
func (r *fakeRegistry) Orders() repositories.OrderRepository {
	return nil
}
func (r *fakeRegistry) Discounts() repositories.DiscountRepository {
	return fakeDiscounts{fakeInserts: r.discounts}
}
func (r *fakeRegistry) Returns() repositories.ReturnRepository { return nil }
