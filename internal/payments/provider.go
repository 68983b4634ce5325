// Package payments adapts the card and UPI gateways behind one Provider contract.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Status is the gateway-neutral state of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

var (
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	ErrNotConfigured       = errors.New("payments: provider credentials are not configured")
	// ErrInvalidSignature means a checkout callback did not verify. Nothing was changed.
	ErrInvalidSignature = errors.New("payments: invalid signature")
	ErrInvalidAmount    = errors.New("payments: amount must be positive")
)

// IntentRequest asks a gateway to open a payment for an order. Amount is in minor units.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Receipt        string
	CustomerEmail  string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the gateway object the storefront opens checkout with.
type Intent struct {
	Provider     string
	ID           string
	ClientSecret string
	// PublicKey is the key the client needs to open the provider checkout.
	PublicKey string
	Amount    int64
	Currency  string
	Status    Status
}

// Confirmation is the signed callback the storefront relays after checkout.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Provider is implemented by each gateway adapter.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	// VerifyConfirmation returns ErrInvalidSignature on mismatch and never mutates state.
	VerifyConfirmation(ctx context.Context, c Confirmation) error
}

// ToMinorUnits converts a major-unit amount to the integer units gateways charge in, using the
// ISO 4217 scale of code (2 for INR and USD, 0 for JPY). An empty code assumes scale 2.
func ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	scale := 2
	if code = strings.TrimSpace(code); code != "" {
		unit, err := currency.ParseISO(code)
		if err != nil {
			return 0, fmt.Errorf("payments: unknown currency %q", code)
		}
		scale, _ = currency.Standard.Rounding(unit)
	}
	minor := amount.Shift(int32(scale)).Round(0)
	if !minor.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}
