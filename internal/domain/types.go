package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SizeStock tracks available inventory for one size variant of a product.
type SizeStock struct {
	Size  string
	Stock int
}

// Product is a catalog entry. Sizes hold the only source of truth for availability.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	SubCategory string
	Images      []string
	Sizes       []SizeStock
	Bestseller  bool
	CreatedAt   time.Time
}

// SizeEntry returns the stock entry for size.
func (p Product) SizeEntry(size string) (SizeStock, bool) {
	for _, entry := range p.Sizes {
		if entry.Size == size {
			return entry, true
		}
	}
	return SizeStock{}, false
}

// PrimaryImage returns the first image URL or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Role is the authorisation role carried by a user account.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleLogistics Role = "logistics"
)

// Cart maps product id to size to quantity.
type Cart map[string]map[string]int

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for productID, sizes := range c {
		copied := make(map[string]int, len(sizes))
		for size, qty := range sizes {
			copied[size] = qty
		}
		out[productID] = copied
	}
	return out
}

// Set stores quantity for a product and size. Zero or negative removes the entry.
func (c Cart) Set(productID, size string, quantity int) {
	if quantity <= 0 {
		if sizes, ok := c[productID]; ok {
			delete(sizes, size)
			if len(sizes) == 0 {
				delete(c, productID)
			}
		}
		return
	}
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size] = quantity
}

// Quantity returns the quantity held for a product and size.
func (c Cart) Quantity(productID, size string) int {
	return c[productID][size]
}

// Address is a shipping address snapshot copied onto orders.
type Address struct {
	FirstName string
	LastName  string
	Email     string
	Street    string
	City      string
	State     string
	Zipcode   string
	Country   string
	Phone     string
}

// User is a storefront account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Cart         Cart
	Wishlist     []string
	Addresses    []Address
	ResetCode    string
	ResetExpiry  *time.Time
	CreatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DiscountType distinguishes store-wide from user-scoped discounts.
type DiscountType string

const (
	DiscountTypeGlobal DiscountType = "global"
	DiscountTypeUser   DiscountType = "user"
)

// Discount applies Percentage to base prices inside the inclusive band [MinPrice, MaxPrice].
// Discounts are never mutated after creation.
type Discount struct {
	ID         string
	Type       DiscountType
	UserID     string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	Percentage decimal.Decimal
	CreatedBy  string
	CreatedAt  time.Time
}

// Applies reports whether price falls inside the discount band.
func (d Discount) Applies(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(d.MinPrice) && price.LessThanOrEqual(d.MaxPrice)
}

// PaymentMethod records how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodRazorpay PaymentMethod = "Razorpay"
	PaymentMethodStripe   PaymentMethod = "Stripe"
)

// IsGateway reports whether the method settles through a remote payment provider.
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentMethodRazorpay || m == PaymentMethodStripe
}

// OrderLine is a line item frozen at purchase time.
type OrderLine struct {
	ProductID string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
	Name      string
	Image     string
}

// Subtotal returns UnitPrice times Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a placed or pending purchase.
type Order struct {
	ID               string
	UserID           string
	Items            []OrderLine
	Amount           decimal.Decimal
	Currency         string
	Address          Address
	PaymentMethod    PaymentMethod
	PaymentSettled   bool
	Status           OrderStatus
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	ExpectedDelivery time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductIDs returns the distinct product ids of the order in line order.
func (o Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, line := range o.Items {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// ReturnRequest asks for a return and refund of a delivered order.
type ReturnRequest struct {
	ID        string
	OrderID   string
	UserID    string
	Reason    string
	Images    []string
	Status    ReturnStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the request blocks another request for the same order.
func (r ReturnRequest) Active() bool {
	return r.Status != ReturnStatusRejected
}
