package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayLogger defines the logging contract for Razorpay provider operations.
type RazorpayLogger func(ctx context.Context, event string, fields map[string]any)

type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID     string
	KeySecret string
	Logger    RazorpayLogger
	Orders    razorpayOrderAPI
}

// RazorpayProvider opens Razorpay orders and checks checkout signatures.
type RazorpayProvider struct {
	orders razorpayOrderAPI
	keyID  string
	secret []byte
	logger RazorpayLogger
}

// NewRazorpayProvider constructs a Razorpay Provider. Both key id and secret are required
// because the secret also signs checkout callbacks.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || secret == "" {
		return nil, fmt.Errorf("razorpay: %w", ErrNotConfigured)
	}
	orders := cfg.Orders
	if orders == nil {
		orders = razorpay.NewClient(keyID, secret).Order
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &RazorpayProvider{orders: orders, keyID: keyID, secret: []byte(secret), logger: logger}, nil
}

// CreateIntent creates a Razorpay order for the amount in minor units.
func (p *RazorpayProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if p == nil {
		return Intent{}, errors.New("razorpay: provider is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	currency := strings.ToUpper(defaultString(req.Currency, "INR"))
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": currency,
		"receipt":  req.Receipt,
	}
	if len(req.Metadata) > 0 {
		notes := make(map[string]interface{}, len(req.Metadata))
		for k, v := range req.Metadata {
			notes[k] = v
		}
		data["notes"] = notes
	}
	var headers map[string]string
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		headers = map[string]string{"X-Idempotency-Key": key}
	}

	// The SDK call does not take a context.
	resp, err := p.orders.Create(data, headers)
	if err != nil {
		return Intent{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	id, _ := resp["id"].(string)
	if id == "" {
		return Intent{}, errors.New("razorpay: create order: response missing id")
	}
	p.logger(ctx, "payments.razorpay.order.created", map[string]any{
		"gatewayOrderId": id,
		"receipt":        req.Receipt,
		"amount":         req.Amount,
	})
	return Intent{
		Provider:  ProviderRazorpay,
		ID:        id,
		PublicKey: p.keyID,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    StatusPending,
	}, nil
}

// VerifyConfirmation recomputes HMAC-SHA256(orderId|paymentId) with the key secret.
func (p *RazorpayProvider) VerifyConfirmation(_ context.Context, c Confirmation) error {
	if p == nil || len(p.secret) == 0 {
		return ErrNotConfigured
	}
	if c.GatewayOrderID == "" || c.GatewayPaymentID == "" || c.Signature == "" {
		return ErrInvalidSignature
	}
	expected := RazorpaySignature(p.secret, c.GatewayOrderID, c.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// RazorpaySignature returns the hex signature Razorpay checkout attaches to a payment.
func RazorpaySignature(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
