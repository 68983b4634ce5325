package repositories

import (
	"context"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/pagination"
)

// Registry exposes typed repository accessors for one storage backend.
type Registry interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	Products() ProductRepository
	Users() UserRepository
	Orders() OrderRepository
	Discounts() DiscountRepository
	Returns() ReturnRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// StockMode selects how AdjustStock treats lines that cannot be fully applied.
type StockMode int

const (
	// StockStrict applies every line or none of them.
	StockStrict StockMode = iota
	// StockClamp decrements each line by what is available and reports the shortfall.
	StockClamp
)

// StockLine is one product size quantity to remove from inventory.
type StockLine struct {
	ProductID string
	Size      string
	Quantity  int
}

// StockShortfall reports a clamped line.
type StockShortfall struct {
	ProductID string
	Size      string
	Requested int
	Applied   int
}

// StockResult summarises an AdjustStock call.
type StockResult struct {
	Shortfalls []StockShortfall
}

// ProductRepository persists catalog entries and owns stock mutation.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	// FindByIDs returns the products that exist, in no particular order.
	FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Delete(ctx context.Context, productID string) error
	// AdjustStock decrements stock atomically. Stock never drops below zero. In strict mode a
	// failing line yields a *StockError and nothing is written.
	AdjustStock(ctx context.Context, lines []StockLine, mode StockMode) (StockResult, error)
	// RestoreStock adds quantities back, used when a persisted decrement must be undone.
	RestoreStock(ctx context.Context, lines []StockLine) error
}

// UserRepository persists accounts with their cart and wishlist.
type UserRepository interface {
	// Insert fails with a conflict when the email is already registered.
	Insert(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateCart(ctx context.Context, userID string, cart domain.Cart) error
	ClearCart(ctx context.Context, userID string) error
	UpdateWishlist(ctx context.Context, userID string, productIDs []string) error
}

// OrderListFilter narrows the admin order listing.
type OrderListFilter struct {
	Status   domain.OrderStatus
	PageSize int
	Cursor   pagination.Cursor
}

// GatewayConfirmation carries the verified gateway callback.
type GatewayConfirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ConfirmedAt      time.Time
}

// ConfirmResult reports the order after a confirmation attempt. Confirmed is true only for
// the single call that flipped the order to settled.
type ConfirmResult struct {
	Order     domain.Order
	Confirmed bool
}

// OrderRepository persists orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// ForEach streams every order to fn, stopping at the first error.
	ForEach(ctx context.Context, fn func(domain.Order) error) error
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, expectedDelivery *time.Time, now time.Time) (domain.Order, error)
	MarkPaymentSettled(ctx context.Context, orderID string, now time.Time) (domain.Order, error)
	// ConfirmGatewayPayment flips payment_settled from false to true and the status from
	// Awaiting Payment to Order Placed in one conditional write.
	ConfirmGatewayPayment(ctx context.Context, confirmation GatewayConfirmation) (ConfirmResult, error)
}

// DiscountFilter narrows discount listings. Empty fields match everything.
type DiscountFilter struct {
	Type   domain.DiscountType
	UserID string
}

// DiscountRepository persists discount rules.
type DiscountRepository interface {
	Insert(ctx context.Context, discount domain.Discount) error
	Delete(ctx context.Context, discountID string) error
	List(ctx context.Context, filter DiscountFilter) ([]domain.Discount, error)
}

// ReturnRepository persists return requests.
type ReturnRepository interface {
	// Create fails with a conflict when the order already has an active request.
	Create(ctx context.Context, request domain.ReturnRequest) error
	FindByID(ctx context.Context, requestID string) (domain.ReturnRequest, error)
	ListAll(ctx context.Context) ([]domain.ReturnRequest, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.ReturnRequest, error)
	UpdateStatus(ctx context.Context, requestID string, status domain.ReturnStatus, now time.Time) (domain.ReturnRequest, error)
	Delete(ctx context.Context, requestID string) error
}

// HealthRepository aggregates dependency probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
