package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	SizeStock          = domain.SizeStock
	User               = domain.User
	Cart               = domain.Cart
	Address            = domain.Address
	Discount           = domain.Discount
	DiscountType       = domain.DiscountType
	Order              = domain.Order
	OrderLine          = domain.OrderLine
	OrderStatus        = domain.OrderStatus
	PaymentMethod      = domain.PaymentMethod
	ReturnRequest      = domain.ReturnRequest
	ReturnStatus       = domain.ReturnStatus
	Role               = domain.Role
	SystemHealthReport = domain.SystemHealthReport
)

// Viewer identifies the caller on role-scoped reads.
type Viewer struct {
	UserID string
	Role   Role
}

// IsStaff reports whether the viewer may see every user's records.
func (v Viewer) IsStaff() bool {
	switch v.Role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleLogistics:
		return true
	default:
		return false
	}
}

// CatalogService manages products.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	AddProduct(ctx context.Context, cmd AddProductCommand) (Product, error)
	RemoveProduct(ctx context.Context, productID string) error
}

// AddProductCommand creates a catalog entry.
type AddProductCommand struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	SubCategory string
	Images      []string
	Uploads     []ImageFile
	Sizes       []SizeStock
	Bestseller  bool
}

// UserService manages accounts, carts and wishlists.
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error)
	Login(ctx context.Context, cmd LoginCommand) (AuthResult, error)
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddToCart(ctx context.Context, cmd CartItemCommand) (Cart, error)
	UpdateCart(ctx context.Context, cmd CartItemCommand) (Cart, error)
	GetWishlist(ctx context.Context, userID string) ([]string, error)
	ToggleWishlist(ctx context.Context, userID, productID string) (WishlistResult, error)
}

type RegisterCommand struct {
	Name     string
	Email    string
	Password string
}

type LoginCommand struct {
	Email    string
	Password string
}

// AuthResult carries a freshly issued credential.
type AuthResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// CartItemCommand adds or sets one cart entry. Quantity is ignored by AddToCart.
type CartItemCommand struct {
	UserID    string
	ProductID string
	Size      string
	Quantity  int
}

// WishlistResult reports the wishlist after a toggle.
type WishlistResult struct {
	ProductIDs []string
	Added      bool
}

// TokenIssuer signs user credentials.
type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

// DiscountService manages discount rules and resolves effective prices.
type DiscountService interface {
	CreateDiscount(ctx context.Context, cmd CreateDiscountCommand) (Discount, error)
	DeleteDiscount(ctx context.Context, discountID string) error
	ListDiscounts(ctx context.Context, filter repositories.DiscountFilter) ([]Discount, error)
	Applicable(ctx context.Context, userID string, price decimal.Decimal) (ApplicableDiscounts, error)
	PriceBook(ctx context.Context, userID string) (PriceBook, error)
}

type CreateDiscountCommand struct {
	Type       DiscountType
	UserID     string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	Percentage decimal.Decimal
	ActorID    string
}

// ApplicableDiscounts lists the rules whose band contains a price and the price they yield.
type ApplicableDiscounts struct {
	Price           decimal.Decimal
	EffectivePrice  decimal.Decimal
	UserDiscounts   []Discount
	GlobalDiscounts []Discount
}

// StockLedger validates and mutates per-size stock. It is the only writer of inventory.
type StockLedger interface {
	CheckAvailability(ctx context.Context, lines []repositories.StockLine) ([]Product, error)
	Decrement(ctx context.Context, lines []repositories.StockLine, mode repositories.StockMode) (repositories.StockResult, error)
	Restore(ctx context.Context, lines []repositories.StockLine) error
}

// OrderService places orders and serves order reads.
type OrderService interface {
	PlaceCOD(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	PlaceGateway(ctx context.Context, cmd PlaceOrderCommand) (GatewayCheckout, error)
	ListUserOrders(ctx context.Context, userID string) ([]Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error)
}

// OrderItemInput is one requested line.
type OrderItemInput struct {
	ProductID string
	Size      string
	Quantity  int
}

// PlaceOrderCommand is the validated order creation request. Amount is optional; when set
// it must match the server-computed total.
type PlaceOrderCommand struct {
	UserID         string
	Items          []OrderItemInput
	Amount         *decimal.Decimal
	Address        Address
	Gateway        string
	IdempotencyKey string
}

// GatewayCheckout is returned to the storefront to open the provider checkout.
type GatewayCheckout struct {
	Order          Order
	Provider       string
	GatewayOrderID string
	PublicKey      string
	ClientSecret   string
	AmountMinor    int64
	Currency       string
}

// PaymentService confirms gateway payments.
type PaymentService interface {
	Verify(ctx context.Context, cmd VerifyPaymentCommand) (VerifyResult, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
}

type VerifyPaymentCommand struct {
	Provider         string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyResult reports the order after verification. AlreadyConfirmed is true when an
// earlier call settled the order.
type VerifyResult struct {
	Order            Order
	AlreadyConfirmed bool
}

// WebhookResult summarises a processed webhook delivery.
type WebhookResult struct {
	EventID string
	Type    string
	Handled bool
}

// OrderWorkflowService drives fulfilment stages.
type OrderWorkflowService interface {
	SetStatus(ctx context.Context, cmd SetOrderStatusCommand) (Order, error)
	ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error)
}

type SetOrderStatusCommand struct {
	OrderID          string
	Status           string
	ExpectedDelivery *time.Time
	Force            bool
	ActorID          string
}

type ConfirmPaymentCommand struct {
	OrderID string
	ActorID string
}

// ReturnService manages return and refund requests.
type ReturnService interface {
	Create(ctx context.Context, cmd CreateReturnCommand) (ReturnRequest, error)
	List(ctx context.Context, viewer Viewer) ([]ReturnRequest, error)
	ListByOrder(ctx context.Context, viewer Viewer, orderID string) ([]ReturnRequest, error)
	UpdateStatus(ctx context.Context, cmd UpdateReturnStatusCommand) (ReturnRequest, error)
	Delete(ctx context.Context, requestID string) error
}

// ImageFile is one uploaded image attached to a product or a return request.
type ImageFile struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type CreateReturnCommand struct {
	UserID  string
	OrderID string
	Reason  string
	Images  []ImageFile
}

type UpdateReturnStatusCommand struct {
	RequestID string
	Status    string
	Force     bool
	ActorID   string
}

// RecommendationService serves per-user product recommendations.
type RecommendationService interface {
	Recommend(ctx context.Context, userID string) ([]Product, error)
	Recompute(ctx context.Context) error
	Trigger()
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
