package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Manager picks a gateway per checkout and delegates to it.
type Manager struct {
	providers      map[string]Provider
	fallback       string
	currencyRoutes map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider sets the gateway used when neither the shopper nor a currency route picks one.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.fallback = normalizeName(provider)
	}
}

// WithCurrencyRoutes pins currencies to gateways. Routes naming an unregistered gateway are ignored.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		for code, provider := range routes {
			if m.currencyRoutes == nil {
				m.currencyRoutes = make(map[string]string, len(routes))
			}
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(code))] = normalizeName(provider)
		}
	}
}

// NewManager registers providers by name. Razorpay is the fallback when present.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	m := &Manager{providers: make(map[string]Provider, len(providers))}
	for name, provider := range providers {
		key := normalizeName(name)
		if key == "" || provider == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", name)
		}
		m.providers[key] = provider
	}
	if _, ok := m.providers[ProviderRazorpay]; ok {
		m.fallback = ProviderRazorpay
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// PaymentContext carries the hints used to pick a gateway.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

// Has reports whether a provider is registered under name.
func (m *Manager) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.providers[normalizeName(name)]
	return ok
}

// resolve applies, in order: the shopper's explicit choice, the currency route, the configured
// fallback, and finally the only registered gateway. An explicit unknown choice is an error.
func (m *Manager) resolve(pc PaymentContext) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, ErrNotConfigured
	}
	if preferred := normalizeName(pc.PreferredProvider); preferred != "" {
		if p, ok := m.providers[preferred]; ok {
			return preferred, p, nil
		}
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, preferred)
	}
	candidates := []string{m.currencyRoutes[strings.ToUpper(strings.TrimSpace(pc.Currency))], m.fallback}
	for _, name := range candidates {
		if p, ok := m.providers[name]; ok && name != "" {
			return name, p, nil
		}
	}
	if len(m.providers) == 1 {
		for name, p := range m.providers {
			return name, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateIntent opens a payment on the resolved gateway.
func (m *Manager) CreateIntent(ctx context.Context, pc PaymentContext, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	name, provider, err := m.resolve(pc)
	if err != nil {
		return Intent{}, err
	}
	intent, err := provider.CreateIntent(ctx, req)
	if err != nil {
		return Intent{}, err
	}
	intent.Provider = name
	return intent, nil
}

// VerifyConfirmation checks a checkout callback with the resolved gateway.
func (m *Manager) VerifyConfirmation(ctx context.Context, pc PaymentContext, c Confirmation) error {
	_, provider, err := m.resolve(pc)
	if err != nil {
		return err
	}
	return provider.VerifyConfirmation(ctx, c)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
