package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

type orderFixture struct {
	now       time.Time
	products  *memProducts
	users     *memUsers
	orders    *memOrders
	discounts *memDiscounts
	gateway   *stubGateway
	notifier  *captureNotifier
	trigger   *countingTrigger
	metrics   *captureMetrics
	events    *captureEvents
	svc       OrderService
}

func newOrderFixture(t *testing.T, stockM int, withGateway bool) *orderFixture {
	t.Helper()
	f := &orderFixture{
		now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		products: newMemProducts(Product{
			ID:       "prd_p",
			Name:     "Linen Shirt",
			Price:    decimal.NewFromInt(100),
			Category: "Men",
			Images:   []string{"https://cdn.test/p.jpg"},
			Sizes:    []SizeStock{{Size: "M", Stock: stockM}, {Size: "L", Stock: 4}},
		}),
		users: newMemUsers(User{
			ID:    "usr_1",
			Name:  "Asha",
			Email: "asha@example.com",
			Role:  domain.RoleUser,
			Cart:  domain.Cart{"prd_p": {"M": 3}},
		}),
		orders:    newMemOrders(),
		discounts: &memDiscounts{},
		notifier:  &captureNotifier{},
		trigger:   &countingTrigger{},
		metrics:   &captureMetrics{},
		events:    &captureEvents{},
	}
	ledger, err := NewStockLedger(StockLedgerDeps{Products: f.products, Logger: f.events.log})
	require.NoError(t, err)
	prices, err := NewDiscountService(DiscountServiceDeps{Discounts: f.discounts, Users: f.users})
	require.NoError(t, err)
	deps := OrderServiceDeps{
		Orders:      f.orders,
		Users:       f.users,
		Stock:       ledger,
		Prices:      prices,
		Notifier:    f.notifier,
		Metrics:     f.metrics,
		Recommender: f.trigger,
		Clock:       func() time.Time { return f.now },
		IDGenerator: func() string { return "01TEST" },
		Logger:      f.events.log,
	}
	if withGateway {
		f.gateway = &stubGateway{}
		deps.Payments = f.gateway
	}
	f.svc, err = NewOrderService(deps)
	require.NoError(t, err)
	return f
}

func codCommand(qty int) PlaceOrderCommand {
	return PlaceOrderCommand{
		UserID:  "usr_1",
		Items:   []OrderItemInput{{ProductID: "prd_p", Size: "M", Quantity: qty}},
		Address: Address{FirstName: "Asha", Street: "12 MG Road", City: "Pune", Country: "IN"},
	}
}

func TestOrderServicePlaceCODDecrementsStockAndClearsCart(t *testing.T) {
	f := newOrderFixture(t, 5, false)

	order, err := f.svc.PlaceCOD(context.Background(), codCommand(3))
	require.NoError(t, err)

	require.Equal(t, "ord_01TEST", order.ID)
	require.Equal(t, domain.OrderStatusPlaced, order.Status)
	require.Equal(t, domain.PaymentMethodCOD, order.PaymentMethod)
	require.False(t, order.PaymentSettled)
	require.Equal(t, f.now.Add(7*24*time.Hour), order.ExpectedDelivery)
	require.True(t, decimal.NewFromInt(300).Equal(order.Amount), "amount %s", order.Amount)
	require.Equal(t, "INR", order.Currency)
	require.Len(t, order.Items, 1)
	require.Equal(t, "Linen Shirt", order.Items[0].Name)

	require.Equal(t, 2, f.products.stock("prd_p", "M"))
	user, err := f.users.FindByID(context.Background(), "usr_1")
	require.NoError(t, err)
	require.Empty(t, user.Cart)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Status, stored.Status)

	require.Equal(t, []string{order.ID}, f.notifier.placed)
	require.Equal(t, 1, f.trigger.calls)
	require.Equal(t, []string{"COD"}, f.metrics.placed)
}

func TestOrderServicePlaceCODInsufficientStockPersistsNothing(t *testing.T) {
	f := newOrderFixture(t, 1, false)

	_, err := f.svc.PlaceCOD(context.Background(), codCommand(2))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrStockUnavailable)
	var stockErr *repositories.StockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, 1, stockErr.Available)
	require.Equal(t, 2, stockErr.Requested)
	require.Contains(t, err.Error(), "available 1, requested 2")

	require.Zero(t, f.orders.count())
	require.Equal(t, 1, f.products.stock("prd_p", "M"))
	require.Empty(t, f.notifier.placed)
	require.Zero(t, f.users.clearCalls)
}

func TestOrderServicePlaceCODMergesDuplicateLinesBeforeChecking(t *testing.T) {
	f := newOrderFixture(t, 3, false)
	cmd := codCommand(2)
	cmd.Items = append(cmd.Items, OrderItemInput{ProductID: "prd_p", Size: "M", Quantity: 2})

	_, err := f.svc.PlaceCOD(context.Background(), cmd)
	require.ErrorIs(t, err, ErrStockUnavailable)
	require.Equal(t, 3, f.products.stock("prd_p", "M"))
}

func TestOrderServiceRecomputesPricesWithDiscounts(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	f.discounts.items = []Discount{
		{ID: "dsc_user", Type: domain.DiscountTypeUser, UserID: "usr_1", MinPrice: decimal.NewFromInt(50), MaxPrice: decimal.NewFromInt(500), Percentage: decimal.NewFromInt(30)},
		{ID: "dsc_global", Type: domain.DiscountTypeGlobal, MinPrice: decimal.NewFromInt(0), MaxPrice: decimal.NewFromInt(1000), Percentage: decimal.NewFromInt(10)},
	}

	stale := decimal.NewFromInt(100)
	cmd := codCommand(1)
	cmd.Amount = &stale
	_, err := f.svc.PlaceCOD(context.Background(), cmd)
	require.ErrorIs(t, err, ErrOrderInvalidInput)
	require.Contains(t, err.Error(), "amount does not match current prices")
	require.Equal(t, 5, f.products.stock("prd_p", "M"))

	current := decimal.RequireFromString("70.004")
	cmd.Amount = &current
	order, err := f.svc.PlaceCOD(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(70).Equal(order.Items[0].UnitPrice), "unit price %s", order.Items[0].UnitPrice)
	require.True(t, decimal.NewFromInt(70).Equal(order.Amount))
}

func TestOrderServiceRestoresStockWhenInsertFails(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	f.orders.insertErr = errors.New("write failed")

	_, err := f.svc.PlaceCOD(context.Background(), codCommand(2))
	require.Error(t, err)
	require.Equal(t, 5, f.products.stock("prd_p", "M"))
	require.Empty(t, f.notifier.placed)
}

func TestOrderServiceCartClearFailureDoesNotFailOrder(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	f.users.clearErr = errors.New("users offline")

	_, err := f.svc.PlaceCOD(context.Background(), codCommand(1))
	require.NoError(t, err)
	require.True(t, f.events.has("order.cart_clear_failed"))
}

func TestOrderServiceValidatesCommand(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	cases := map[string]func(*PlaceOrderCommand){
		"missing items":   func(c *PlaceOrderCommand) { c.Items = nil },
		"zero quantity":   func(c *PlaceOrderCommand) { c.Items[0].Quantity = 0 },
		"missing size":    func(c *PlaceOrderCommand) { c.Items[0].Size = " " },
		"missing address": func(c *PlaceOrderCommand) { c.Address = Address{} },
		"missing user id": func(c *PlaceOrderCommand) { c.UserID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := codCommand(1)
			mutate(&cmd)
			_, err := f.svc.PlaceCOD(context.Background(), cmd)
			require.ErrorIs(t, err, ErrOrderInvalidInput)
		})
	}
}

func TestOrderServicePlaceGatewayLeavesStockUntouched(t *testing.T) {
	f := newOrderFixture(t, 5, true)
	var captured payments.IntentRequest
	f.gateway.createFn = func(_ context.Context, pc payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error) {
		require.Equal(t, "razorpay", pc.PreferredProvider)
		captured = req
		return payments.Intent{Provider: payments.ProviderRazorpay, ID: "order_rzp_9", PublicKey: "rzp_test", Amount: req.Amount, Currency: req.Currency}, nil
	}
	cmd := codCommand(2)
	cmd.Gateway = "razorpay"
	cmd.IdempotencyKey = "idem-1"

	checkout, err := f.svc.PlaceGateway(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "order_rzp_9", checkout.GatewayOrderID)
	require.Equal(t, "rzp_test", checkout.PublicKey)
	require.EqualValues(t, 20000, captured.Amount)
	require.Equal(t, "asha@example.com", captured.CustomerEmail)
	require.Equal(t, "idem-1", captured.IdempotencyKey)

	require.Equal(t, domain.OrderStatusAwaitingPayment, checkout.Order.Status)
	require.Equal(t, domain.PaymentMethodRazorpay, checkout.Order.PaymentMethod)
	require.False(t, checkout.Order.PaymentSettled)
	stored, err := f.orders.FindByGatewayOrderID(context.Background(), "order_rzp_9")
	require.NoError(t, err)
	require.Equal(t, checkout.Order.ID, stored.ID)

	require.Equal(t, 5, f.products.stock("prd_p", "M"))
	require.Zero(t, f.users.clearCalls)
	require.Empty(t, f.notifier.placed)
}

func TestOrderServicePlaceGatewayWithoutCredentials(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	_, err := f.svc.PlaceGateway(context.Background(), codCommand(1))
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
	require.Zero(t, f.orders.count())

	var nilManager *payments.Manager
	f2 := newOrderFixture(t, 5, false)
	ledger, _ := NewStockLedger(StockLedgerDeps{Products: f2.products})
	prices, _ := NewDiscountService(DiscountServiceDeps{Discounts: f2.discounts, Users: f2.users})
	svc, err := NewOrderService(OrderServiceDeps{Orders: f2.orders, Users: f2.users, Stock: ledger, Prices: prices, Payments: nilManager})
	require.NoError(t, err)
	_, err = svc.PlaceGateway(context.Background(), codCommand(1))
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
}

func TestOrderServicePlaceGatewayUpstreamFailurePersistsNothing(t *testing.T) {
	f := newOrderFixture(t, 5, true)
	f.gateway.createFn = func(context.Context, payments.PaymentContext, payments.IntentRequest) (payments.Intent, error) {
		return payments.Intent{}, errors.New("razorpay: 503")
	}
	_, err := f.svc.PlaceGateway(context.Background(), codCommand(1))
	require.ErrorIs(t, err, ErrPaymentUpstream)
	require.Zero(t, f.orders.count())
	require.True(t, f.events.has("order.gateway_failed"))
}

func TestOrderServicePlaceGatewayRejectsNonPositiveAmount(t *testing.T) {
	f := newOrderFixture(t, 5, true)
	zero := decimal.Zero
	cmd := codCommand(1)
	cmd.Amount = &zero
	_, err := f.svc.PlaceGateway(context.Background(), cmd)
	require.ErrorIs(t, err, ErrOrderInvalidInput)
}

func TestOrderServiceListUserOrdersNewestFirst(t *testing.T) {
	f := newOrderFixture(t, 5, false)
	base := f.now
	f.orders.items["a"] = Order{ID: "a", UserID: "usr_1", CreatedAt: base}
	f.orders.items["b"] = Order{ID: "b", UserID: "usr_1", CreatedAt: base.Add(time.Hour)}
	f.orders.items["c"] = Order{ID: "c", UserID: "usr_2", CreatedAt: base}

	orders, err := f.svc.ListUserOrders(context.Background(), "usr_1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "b", orders[0].ID)

	empty, err := f.svc.ListUserOrders(context.Background(), "usr_9")
	require.NoError(t, err)
	require.NotNil(t, empty)
}
