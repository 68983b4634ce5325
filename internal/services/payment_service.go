package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const stripeEventPaymentSucceeded = "payment_intent.succeeded"

// StripeWebhookParser authenticates and decodes Stripe webhook deliveries.
type StripeWebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
}

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Orders      repositories.OrderRepository
	Users       repositories.UserRepository
	Stock       StockLedger
	Payments    PaymentGateway
	Webhooks    StripeWebhookParser
	Notifier    Notifier
	Metrics     OrderMetrics
	Recommender RecomputeTrigger
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders      repositories.OrderRepository
	users       repositories.UserRepository
	stock       StockLedger
	payments    PaymentGateway
	webhooks    StripeWebhookParser
	notifier    Notifier
	metrics     OrderMetrics
	recommender RecomputeTrigger
	clock       func() time.Time
	logger      EventLogger
}

func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("payment service: user repository is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("payment service: stock ledger is required")
	}
	return &paymentService{
		orders:      deps.Orders,
		users:       deps.Users,
		stock:       deps.Stock,
		payments:    deps.Payments,
		webhooks:    deps.Webhooks,
		notifier:    notifierOrNop(deps.Notifier),
		metrics:     metricsOrNop(deps.Metrics),
		recommender: triggerOrNop(deps.Recommender),
		clock:       utcClock(deps.Clock),
		logger:      loggerOrNop(deps.Logger),
	}, nil
}

// Verify checks the gateway signature and settles the order. Only the call that flips the
// order decrements stock; repeats return the settled order with AlreadyConfirmed set.
func (s *paymentService) Verify(ctx context.Context, cmd VerifyPaymentCommand) (VerifyResult, error) {
	confirmation := payments.Confirmation{
		GatewayOrderID:   strings.TrimSpace(cmd.GatewayOrderID),
		GatewayPaymentID: strings.TrimSpace(cmd.GatewayPaymentID),
		Signature:        strings.TrimSpace(cmd.Signature),
	}
	if confirmation.GatewayOrderID == "" {
		return VerifyResult{}, fmt.Errorf("%w: gateway order id is required", ErrOrderInvalidInput)
	}
	// Stripe confirmations are checked against the intent itself and carry no client signature.
	provider := strings.ToLower(strings.TrimSpace(cmd.Provider))
	if provider != payments.ProviderStripe && (confirmation.GatewayPaymentID == "" || confirmation.Signature == "") {
		return VerifyResult{}, fmt.Errorf("%w: payment id and signature are required", ErrOrderInvalidInput)
	}
	if s.payments == nil {
		return VerifyResult{}, ErrPaymentNotConfigured
	}

	err := s.payments.VerifyConfirmation(ctx, payments.PaymentContext{PreferredProvider: provider}, confirmation)
	if err != nil {
		return VerifyResult{}, s.verificationError(ctx, confirmation.GatewayOrderID, err)
	}
	return s.confirm(ctx, repositories.GatewayConfirmation{
		GatewayOrderID:   confirmation.GatewayOrderID,
		GatewayPaymentID: confirmation.GatewayPaymentID,
		Signature:        confirmation.Signature,
	})
}

// HandleStripeWebhook settles orders for succeeded payment intents. Other events and intents
// that match no order are acknowledged without effect.
func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	if s.webhooks == nil {
		return WebhookResult{}, ErrPaymentNotConfigured
	}
	event, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrWebhookNotConfigured):
			return WebhookResult{}, ErrPaymentNotConfigured
		case errors.Is(err, payments.ErrInvalidSignature):
			s.logger(ctx, "payment.webhook_rejected", map[string]any{"error": err.Error()})
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrPaymentSignature, err)
		default:
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}
	}
	result := WebhookResult{EventID: event.ID, Type: event.Type}
	if event.Type != stripeEventPaymentSucceeded || event.PaymentIntentID == "" {
		return result, nil
	}

	_, err = s.confirm(ctx, repositories.GatewayConfirmation{
		GatewayOrderID:   event.PaymentIntentID,
		GatewayPaymentID: event.ChargeID,
	})
	if errors.Is(err, ErrOrderNotFound) {
		s.logger(ctx, "payment.webhook_unmatched", map[string]any{
			"eventId":         event.ID,
			"paymentIntentId": event.PaymentIntentID,
		})
		return result, nil
	}
	if err != nil {
		return WebhookResult{}, err
	}
	result.Handled = true
	return result, nil
}

func (s *paymentService) confirm(ctx context.Context, confirmation repositories.GatewayConfirmation) (VerifyResult, error) {
	confirmation.ConfirmedAt = s.clock()
	res, err := s.orders.ConfirmGatewayPayment(ctx, confirmation)
	if err != nil {
		return VerifyResult{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	if !res.Confirmed {
		s.metrics.Verification(ctx, "duplicate")
		s.logger(ctx, "payment.already_confirmed", map[string]any{
			"orderId":        res.Order.ID,
			"gatewayOrderId": confirmation.GatewayOrderID,
		})
		return VerifyResult{Order: res.Order, AlreadyConfirmed: true}, nil
	}

	order := res.Order
	// The payment is captured, so stock is clamped rather than refused.
	stock, err := s.stock.Decrement(ctx, stockLinesFor(order), repositories.StockClamp)
	if err != nil {
		s.logger(ctx, "payment.stock_decrement_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
	short := 0
	for _, sf := range stock.Shortfalls {
		short += sf.Requested - sf.Applied
	}
	if short > 0 {
		s.metrics.Shortfall(ctx, short)
		s.logger(ctx, "payment.stock_shortfall", map[string]any{
			"orderId":    order.ID,
			"shortUnits": short,
			"shortfalls": len(stock.Shortfalls),
		})
	}

	s.logger(ctx, "payment.confirmed", map[string]any{
		"orderId":          order.ID,
		"userId":           order.UserID,
		"gatewayOrderId":   order.GatewayOrderID,
		"gatewayPaymentId": order.GatewayPaymentID,
	})
	afterPlacement(ctx, s.users, s.notifier, s.recommender, s.logger, order)
	s.metrics.Verification(ctx, "confirmed")
	return VerifyResult{Order: order}, nil
}

func (s *paymentService) verificationError(ctx context.Context, gatewayOrderID string, err error) error {
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		s.metrics.Verification(ctx, "invalid_signature")
		s.logger(ctx, "payment.signature_mismatch", map[string]any{"gatewayOrderId": gatewayOrderID})
		return ErrPaymentSignature
	case errors.Is(err, payments.ErrNotConfigured):
		return ErrPaymentNotConfigured
	case errors.Is(err, payments.ErrUnsupportedProvider):
		return fmt.Errorf("%w: unsupported payment gateway", ErrOrderInvalidInput)
	}
	s.logger(ctx, "payment.verify_failed", map[string]any{"gatewayOrderId": gatewayOrderID, "error": err.Error()})
	return fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
}
