package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	orderIDPrefix         = "ord_"
	defaultOrderCurrency  = "INR"
	defaultDeliveryWindow = 7 * 24 * time.Hour
	maxOrderLines         = 50
)

// amountTolerance is the largest accepted gap between a submitted amount and the server total.
var amountTolerance = decimal.New(1, -2)

// PaymentGateway opens and verifies remote payments. *payments.Manager satisfies it.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error)
	VerifyConfirmation(ctx context.Context, paymentCtx payments.PaymentContext, c payments.Confirmation) error
}

// PriceSource resolves effective prices for a user. DiscountService satisfies it.
type PriceSource interface {
	PriceBook(ctx context.Context, userID string) (PriceBook, error)
}

// OrderMetrics records order outcomes. *observability.OrderMetrics satisfies it.
type OrderMetrics interface {
	OrderPlaced(ctx context.Context, method string)
	Verification(ctx context.Context, outcome string)
	Shortfall(ctx context.Context, units int)
}

// RecomputeTrigger requests a recommendation refresh without blocking.
type RecomputeTrigger interface {
	Trigger()
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Users          repositories.UserRepository
	Stock          StockLedger
	Prices         PriceSource
	Payments       PaymentGateway
	Notifier       Notifier
	Metrics        OrderMetrics
	Recommender    RecomputeTrigger
	Currency       string
	DeliveryWindow time.Duration
	Clock          func() time.Time
	IDGenerator    func() string
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders         repositories.OrderRepository
	users          repositories.UserRepository
	stock          StockLedger
	prices         PriceSource
	payments       PaymentGateway
	notifier       Notifier
	metrics        OrderMetrics
	recommender    RecomputeTrigger
	currency       string
	deliveryWindow time.Duration
	clock          func() time.Time
	newID          func() string
	logger         EventLogger
}

// NewOrderService wires the order engine. Payments may be nil, in which case gateway checkout
// reports ErrPaymentNotConfigured.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("order service: stock ledger is required")
	}
	if deps.Prices == nil {
		return nil, errors.New("order service: price source is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultOrderCurrency
	}
	window := deps.DeliveryWindow
	if window <= 0 {
		window = defaultDeliveryWindow
	}
	return &orderService{
		orders:         deps.Orders,
		users:          deps.Users,
		stock:          deps.Stock,
		prices:         deps.Prices,
		payments:       deps.Payments,
		notifier:       notifierOrNop(deps.Notifier),
		metrics:        metricsOrNop(deps.Metrics),
		recommender:    triggerOrNop(deps.Recommender),
		currency:       currency,
		deliveryWindow: window,
		clock:          utcClock(deps.Clock),
		newID:          idGenerator(deps.IDGenerator),
		logger:         loggerOrNop(deps.Logger),
	}, nil
}

// PlaceCOD validates stock, prices the order server-side, decrements stock and persists the
// order as placed. Nothing is persisted when stock is short.
func (s *orderService) PlaceCOD(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	priced, err := s.price(ctx, cmd)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := s.newOrder(cmd, priced, now)
	order.PaymentMethod = domain.PaymentMethodCOD
	order.Status = domain.OrderStatusPlaced
	order.ExpectedDelivery = now.Add(s.deliveryWindow)

	// Stock is taken before the order is written so a concurrent buyer cannot oversell; a
	// failed write gives the units back.
	if _, err := s.stock.Decrement(ctx, priced.stockLines, repositories.StockStrict); err != nil {
		return Order{}, err
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		if restoreErr := s.stock.Restore(ctx, priced.stockLines); restoreErr != nil {
			s.logger(ctx, "order.stock_restore_failed", map[string]any{
				"orderId": order.ID,
				"error":   restoreErr.Error(),
			})
		}
		return Order{}, mapRepositoryError(err, nil, nil)
	}

	s.logger(ctx, "order.placed", map[string]any{
		"orderId":       order.ID,
		"userId":        order.UserID,
		"paymentMethod": string(order.PaymentMethod),
		"amount":        order.Amount.StringFixed(2),
	})
	afterPlacement(ctx, s.users, s.notifier, s.recommender, s.logger, order)
	s.metrics.OrderPlaced(ctx, string(order.PaymentMethod))
	return order, nil
}

// PlaceGateway prices the order, opens a payment intent for the server total and persists the
// order awaiting payment. Stock is untouched until verification.
func (s *orderService) PlaceGateway(ctx context.Context, cmd PlaceOrderCommand) (GatewayCheckout, error) {
	if cmd.Amount != nil && !cmd.Amount.IsPositive() {
		return GatewayCheckout{}, fmt.Errorf("%w: amount must be positive", ErrOrderInvalidInput)
	}
	priced, err := s.price(ctx, cmd)
	if err != nil {
		return GatewayCheckout{}, err
	}
	if !priced.total.IsPositive() {
		return GatewayCheckout{}, fmt.Errorf("%w: order total must be positive", ErrOrderInvalidInput)
	}
	if s.payments == nil {
		return GatewayCheckout{}, ErrPaymentNotConfigured
	}

	now := s.clock()
	order := s.newOrder(cmd, priced, now)
	order.Status = domain.OrderStatusAwaitingPayment

	email := ""
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
		email = user.Email
	} else if isNotFound(err) {
		return GatewayCheckout{}, fmt.Errorf("%w: unknown user", ErrOrderInvalidInput)
	}

	minor, err := payments.ToMinorUnits(order.Amount, order.Currency)
	if err != nil {
		return GatewayCheckout{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	intent, err := s.payments.CreateIntent(ctx, payments.PaymentContext{
		PreferredProvider: cmd.Gateway,
		Currency:          order.Currency,
	}, payments.IntentRequest{
		Amount:         minor,
		Currency:       order.Currency,
		Receipt:        order.ID,
		CustomerEmail:  email,
		Metadata:       map[string]string{"orderId": order.ID, "userId": order.UserID},
		IdempotencyKey: cmd.IdempotencyKey,
	})
	if err != nil {
		return GatewayCheckout{}, s.gatewayError(ctx, order.ID, err)
	}

	order.PaymentMethod = paymentMethodFor(intent.Provider)
	order.GatewayOrderID = intent.ID
	if err := s.orders.Insert(ctx, order); err != nil {
		return GatewayCheckout{}, mapRepositoryError(err, nil, nil)
	}

	s.logger(ctx, "order.awaiting_payment", map[string]any{
		"orderId":        order.ID,
		"userId":         order.UserID,
		"provider":       intent.Provider,
		"gatewayOrderId": intent.ID,
		"amount":         order.Amount.StringFixed(2),
	})
	s.metrics.OrderPlaced(ctx, string(order.PaymentMethod))
	return GatewayCheckout{
		Order:          order,
		Provider:       intent.Provider,
		GatewayOrderID: intent.ID,
		PublicKey:      intent.PublicKey,
		ClientSecret:   intent.ClientSecret,
		AmountMinor:    intent.Amount,
		Currency:       order.Currency,
	}, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.ListAll(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, mapRepositoryError(err, nil, nil)
	}
	if page.Items == nil {
		page.Items = []Order{}
	}
	return page, nil
}

type pricedOrder struct {
	lines      []OrderLine
	stockLines []repositories.StockLine
	total      decimal.Decimal
}

// price checks availability and recomputes every line from current prices and discounts.
func (s *orderService) price(ctx context.Context, cmd PlaceOrderCommand) (pricedOrder, error) {
	stockLines, err := validateOrderCommand(cmd)
	if err != nil {
		return pricedOrder{}, err
	}
	products, err := s.stock.CheckAvailability(ctx, stockLines)
	if err != nil {
		return pricedOrder{}, err
	}
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	book, err := s.prices.PriceBook(ctx, cmd.UserID)
	if err != nil {
		return pricedOrder{}, err
	}

	stockLines = mergeStockLines(stockLines)
	lines := make([]OrderLine, 0, len(stockLines))
	total := decimal.Zero
	for _, sl := range stockLines {
		product := byID[sl.ProductID]
		line := OrderLine{
			ProductID: sl.ProductID,
			Size:      sl.Size,
			Quantity:  sl.Quantity,
			UnitPrice: book.Price(product.Price),
			Name:      product.Name,
			Image:     product.PrimaryImage(),
		}
		lines = append(lines, line)
		total = total.Add(line.Subtotal())
	}
	total = total.Round(2)

	if cmd.Amount != nil && cmd.Amount.Sub(total).Abs().GreaterThan(amountTolerance) {
		return pricedOrder{}, fmt.Errorf("%w: amount does not match current prices", ErrOrderInvalidInput)
	}
	return pricedOrder{lines: lines, stockLines: stockLines, total: total}, nil
}

func (s *orderService) newOrder(cmd PlaceOrderCommand, priced pricedOrder, now time.Time) Order {
	return Order{
		ID:        orderIDPrefix + s.newID(),
		UserID:    strings.TrimSpace(cmd.UserID),
		Items:     priced.lines,
		Amount:    priced.total,
		Currency:  s.currency,
		Address:   cmd.Address,
		Status:    domain.OrderStatusPlaced,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *orderService) gatewayError(ctx context.Context, orderID string, err error) error {
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		return ErrPaymentNotConfigured
	case errors.Is(err, payments.ErrUnsupportedProvider):
		return fmt.Errorf("%w: unsupported payment gateway", ErrOrderInvalidInput)
	case errors.Is(err, payments.ErrInvalidAmount):
		return fmt.Errorf("%w: amount must be positive", ErrOrderInvalidInput)
	}
	s.logger(ctx, "order.gateway_failed", map[string]any{"orderId": orderID, "error": err.Error()})
	return fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
}

func validateOrderCommand(cmd PlaceOrderCommand) ([]repositories.StockLine, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) > maxOrderLines {
		return nil, fmt.Errorf("%w: at most %d items per order", ErrOrderInvalidInput, maxOrderLines)
	}
	if strings.TrimSpace(cmd.Address.Street) == "" || strings.TrimSpace(cmd.Address.City) == "" {
		return nil, fmt.Errorf("%w: address street and city are required", ErrOrderInvalidInput)
	}
	lines := make([]repositories.StockLine, 0, len(cmd.Items))
	for i, item := range cmd.Items {
		productID := strings.TrimSpace(item.ProductID)
		size := strings.TrimSpace(item.Size)
		if productID == "" || size == "" {
			return nil, fmt.Errorf("%w: items[%d] requires productId and size", ErrOrderInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: items[%d] quantity must be positive", ErrOrderInvalidInput, i)
		}
		lines = append(lines, repositories.StockLine{ProductID: productID, Size: size, Quantity: item.Quantity})
	}
	return lines, nil
}

func paymentMethodFor(provider string) PaymentMethod {
	if strings.EqualFold(provider, payments.ProviderStripe) {
		return domain.PaymentMethodStripe
	}
	return domain.PaymentMethodRazorpay
}

func stockLinesFor(order Order) []repositories.StockLine {
	lines := make([]repositories.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, repositories.StockLine{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity})
	}
	return lines
}

// afterPlacement runs the best-effort steps shared by COD placement and payment confirmation.
func afterPlacement(ctx context.Context, users repositories.UserRepository, notifier Notifier, recommender RecomputeTrigger, logger EventLogger, order Order) {
	if err := users.ClearCart(ctx, order.UserID); err != nil {
		logger(ctx, "order.cart_clear_failed", map[string]any{
			"orderId": order.ID,
			"userId":  order.UserID,
			"error":   err.Error(),
		})
	}
	notifier.OrderPlaced(ctx, order)
	recommender.Trigger()
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(context.Context, string)  {}
func (nopMetrics) Verification(context.Context, string) {}
func (nopMetrics) Shortfall(context.Context, int)       {}

type nopTrigger struct{}

func (nopTrigger) Trigger() {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func metricsOrNop(m OrderMetrics) OrderMetrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

func triggerOrNop(t RecomputeTrigger) RecomputeTrigger {
	if t == nil {
		return nopTrigger{}
	}
	return t
}
