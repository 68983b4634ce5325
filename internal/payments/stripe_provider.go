package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey         string
	PublishableKey string
	WebhookSecret  string
	Backends       *stripe.Backends
	Logger         StripeLogger
	Intents        stripePaymentIntentAPI
}

// StripeProvider implements Provider with PaymentIntents and verifies Stripe webhooks.
type StripeProvider struct {
	intents        stripePaymentIntentAPI
	publishableKey string
	webhookSecret  string
	logger         StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, fmt.Errorf("stripe: %w", ErrNotConfigured)
	}
	intents := cfg.Intents
	if intents == nil {
		intents = client.New(apiKey, cfg.Backends).PaymentIntents
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StripeProvider{
		intents:        intents,
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		webhookSecret:  strings.TrimSpace(cfg.WebhookSecret),
		logger:         logger,
	}, nil
}

// CreateIntent creates a PaymentIntent with automatic payment methods enabled.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if p == nil {
		return Intent{}, errors.New("stripe: provider is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	currency := strings.ToLower(defaultString(req.Currency, "inr"))
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if req.Receipt != "" {
		params.AddMetadata("receipt", req.Receipt)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"receipt":       req.Receipt,
		"amount":        intent.Amount,
	})
	return Intent{
		Provider:     ProviderStripe,
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		PublicKey:    p.publishableKey,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Status:       stripeStatus(intent.Status),
	}, nil
}

// VerifyConfirmation looks the intent up server-side. Stripe confirmations carry no client
// signature, so the intent must exist and report success.
func (p *StripeProvider) VerifyConfirmation(ctx context.Context, c Confirmation) error {
	if p == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(c.GatewayOrderID) == "" {
		return ErrInvalidSignature
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.intents.Get(c.GatewayOrderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return ErrInvalidSignature
		}
		return fmt.Errorf("stripe: lookup payment intent: %w", err)
	}
	if stripeStatus(intent.Status) != StatusSucceeded {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookEvent is the subset of a verified Stripe event the order flow consumes.
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	ChargeID        string
	Status          Status
	Metadata        map[string]string
	CreatedAt       time.Time
}

// ErrWebhookNotConfigured is returned when no webhook signing secret is set.
var ErrWebhookNotConfigured = errors.New("stripe: webhook secret is not configured")

// ParseWebhook verifies the Stripe-Signature header and decodes payment intent events.
// Events for other objects are returned with an empty PaymentIntentID.
func (p *StripeProvider) ParseWebhook(payload []byte, signatureHeader string) (WebhookEvent, error) {
	if p == nil || p.webhookSecret == "" {
		return WebhookEvent{}, ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	out.PaymentIntentID = intent.ID
	out.Status = stripeStatus(intent.Status)
	out.Metadata = intent.Metadata
	if intent.LatestCharge != nil {
		out.ChargeID = intent.LatestCharge.ID
	}
	return out, nil
}

func stripeStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}
