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
)

type paymentFixture struct {
	products *memProducts
	users    *memUsers
	orders   *memOrders
	notifier *captureNotifier
	trigger  *countingTrigger
	metrics  *captureMetrics
	events   *captureEvents
}

func newPaymentFixture(stock, qty int) *paymentFixture {
	return &paymentFixture{
		products: newMemProducts(Product{
			ID:    "prd_p",
			Name:  "Linen Shirt",
			Price: decimal.NewFromInt(100),
			Sizes: []SizeStock{{Size: "M", Stock: stock}},
		}),
		users: newMemUsers(User{ID: "usr_1", Email: "asha@example.com", Cart: domain.Cart{"prd_p": {"M": qty}}}),
		orders: newMemOrders(Order{
			ID:             "ord_1",
			UserID:         "usr_1",
			Items:          []OrderLine{{ProductID: "prd_p", Size: "M", Quantity: qty, UnitPrice: decimal.NewFromInt(100)}},
			Amount:         decimal.NewFromInt(int64(100 * qty)),
			PaymentMethod:  domain.PaymentMethodRazorpay,
			Status:         domain.OrderStatusAwaitingPayment,
			GatewayOrderID: "order_gw_1",
		}),
		notifier: &captureNotifier{},
		trigger:  &countingTrigger{},
		metrics:  &captureMetrics{},
		events:   &captureEvents{},
	}
}

func (f *paymentFixture) service(t *testing.T, gateway PaymentGateway, webhooks StripeWebhookParser) PaymentService {
	t.Helper()
	ledger, err := NewStockLedger(StockLedgerDeps{Products: f.products, Logger: f.events.log})
	require.NoError(t, err)
	svc, err := NewPaymentService(PaymentServiceDeps{
		Orders:      f.orders,
		Users:       f.users,
		Stock:       ledger,
		Payments:    gateway,
		Webhooks:    webhooks,
		Notifier:    f.notifier,
		Metrics:     f.metrics,
		Recommender: f.trigger,
		Clock:       func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
		Logger:      f.events.log,
	})
	require.NoError(t, err)
	return svc
}

func razorpayManager(t *testing.T, secret string) *payments.Manager {
	t.Helper()
	provider, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{KeyID: "rzp_test", KeySecret: secret})
	require.NoError(t, err)
	manager, err := payments.NewManager(map[string]payments.Provider{payments.ProviderRazorpay: provider})
	require.NoError(t, err)
	return manager
}

func TestPaymentServiceVerifyDecrementsStockOnce(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, razorpayManager(t, "s3cret"), nil)
	cmd := VerifyPaymentCommand{
		GatewayOrderID:   "order_gw_1",
		GatewayPaymentID: "pay_1",
		Signature:        payments.RazorpaySignature([]byte("s3cret"), "order_gw_1", "pay_1"),
	}

	first, err := svc.Verify(context.Background(), cmd)
	require.NoError(t, err)
	require.False(t, first.AlreadyConfirmed)
	require.True(t, first.Order.PaymentSettled)
	require.Equal(t, domain.OrderStatusPlaced, first.Order.Status)
	require.Equal(t, "pay_1", first.Order.GatewayPaymentID)

	second, err := svc.Verify(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, second.AlreadyConfirmed)

	require.Equal(t, 3, f.products.stock("prd_p", "M"))
	require.Equal(t, 1, f.users.clearCalls)
	require.Equal(t, []string{"ord_1"}, f.notifier.placed)
	require.Equal(t, 1, f.trigger.calls)
	require.Equal(t, []string{"confirmed", "duplicate"}, f.metrics.verifications)
}

func TestPaymentServiceVerifyRejectsMutatedSignature(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, razorpayManager(t, "s3cret"), nil)
	sig := []byte(payments.RazorpaySignature([]byte("s3cret"), "order_gw_1", "pay_1"))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{
		GatewayOrderID:   "order_gw_1",
		GatewayPaymentID: "pay_1",
		Signature:        string(sig),
	})
	require.ErrorIs(t, err, ErrPaymentSignature)

	order, err := f.orders.FindByID(context.Background(), "ord_1")
	require.NoError(t, err)
	require.False(t, order.PaymentSettled)
	require.Equal(t, domain.OrderStatusAwaitingPayment, order.Status)
	require.Equal(t, 5, f.products.stock("prd_p", "M"))
	require.Equal(t, []string{"invalid_signature"}, f.metrics.verifications)
}

func TestPaymentServiceVerifyUnknownOrder(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, &stubGateway{}, nil)
	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{GatewayOrderID: "order_missing", GatewayPaymentID: "pay", Signature: "sig"})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentServiceVerifyRequiresSignatureForRazorpay(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, &stubGateway{}, nil)
	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{GatewayOrderID: "order_gw_1", GatewayPaymentID: "pay"})
	require.ErrorIs(t, err, ErrOrderInvalidInput)

	_, err = svc.Verify(context.Background(), VerifyPaymentCommand{Provider: "stripe", GatewayOrderID: "order_gw_1"})
	require.NoError(t, err)
}

func TestPaymentServiceVerifyWithoutGateway(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{GatewayOrderID: "order_gw_1", GatewayPaymentID: "pay", Signature: "sig"})
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
}

func TestPaymentServiceVerifyClampsShortStock(t *testing.T) {
	f := newPaymentFixture(1, 3)
	svc := f.service(t, &stubGateway{}, nil)

	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{GatewayOrderID: "order_gw_1", GatewayPaymentID: "pay", Signature: "sig"})
	require.NoError(t, err)
	require.Equal(t, 0, f.products.stock("prd_p", "M"))
	require.Equal(t, 2, f.metrics.shortUnits)
	require.True(t, f.events.has("payment.stock_shortfall"))
	require.True(t, f.events.has("stock.shortfall"))
}

func TestPaymentServiceVerifyUpstreamFailure(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, &stubGateway{verifyFn: func(context.Context, payments.PaymentContext, payments.Confirmation) error {
		return errors.New("stripe: 500")
	}}, nil)
	_, err := svc.Verify(context.Background(), VerifyPaymentCommand{Provider: "stripe", GatewayOrderID: "order_gw_1"})
	require.ErrorIs(t, err, ErrPaymentUpstream)
}

type stubWebhookParser struct {
	event payments.WebhookEvent
	err   error
}

func (s stubWebhookParser) ParseWebhook([]byte, string) (payments.WebhookEvent, error) {
	return s.event, s.err
}

func TestPaymentServiceStripeWebhookConfirmsIntent(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, nil, stubWebhookParser{event: payments.WebhookEvent{
		ID:              "evt_1",
		Type:            "payment_intent.succeeded",
		PaymentIntentID: "order_gw_1",
		ChargeID:        "ch_1",
	}})

	res, err := svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=x")
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.Equal(t, "evt_1", res.EventID)
	require.Equal(t, 3, f.products.stock("prd_p", "M"))

	order, err := f.orders.FindByID(context.Background(), "ord_1")
	require.NoError(t, err)
	require.Equal(t, "ch_1", order.GatewayPaymentID)

	res, err = svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=x")
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.Equal(t, 3, f.products.stock("prd_p", "M"))
}

func TestPaymentServiceStripeWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture(5, 2)
	svc := f.service(t, nil, stubWebhookParser{event: payments.WebhookEvent{ID: "evt_2", Type: "charge.refunded"}})
	res, err := svc.HandleStripeWebhook(context.Background(), nil, "")
	require.NoError(t, err)
	require.False(t, res.Handled)

	unmatched := f.service(t, nil, stubWebhookParser{event: payments.WebhookEvent{
		ID: "evt_3", Type: "payment_intent.succeeded", PaymentIntentID: "pi_unknown",
	}})
	res, err = unmatched.HandleStripeWebhook(context.Background(), nil, "")
	require.NoError(t, err)
	require.False(t, res.Handled)
	require.True(t, f.events.has("payment.webhook_unmatched"))
}

func TestPaymentServiceStripeWebhookErrors(t *testing.T) {
	f := newPaymentFixture(5, 2)
	_, err := f.service(t, nil, nil).HandleStripeWebhook(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrPaymentNotConfigured)

	_, err = f.service(t, nil, stubWebhookParser{err: payments.ErrInvalidSignature}).HandleStripeWebhook(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrPaymentSignature)

	_, err = f.service(t, nil, stubWebhookParser{err: payments.ErrWebhookNotConfigured}).HandleStripeWebhook(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
}
