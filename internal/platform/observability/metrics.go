package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/Navneet1206/E-Commerce-sub000/internal/platform/observability"

// OrderMetrics counts order lifecycle outcomes.
type OrderMetrics struct {
	placed        metric.Int64Counter
	verifications metric.Int64Counter
	shortfalls    metric.Int64Counter
}

// NewOrderMetrics registers counters on the global meter provider. Registration
// failures are logged and leave the affected counter disabled.
func NewOrderMetrics(logger *zap.Logger) *OrderMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.GetMeterProvider().Meter(meterName)
	m := &OrderMetrics{}
	var err error
	if m.placed, err = meter.Int64Counter("orders.placed", metric.WithDescription("Orders accepted, by payment method")); err != nil {
		logger.Warn("metrics: orders.placed unavailable", zap.Error(err))
	}
	if m.verifications, err = meter.Int64Counter("orders.verifications", metric.WithDescription("Payment verification outcomes")); err != nil {
		logger.Warn("metrics: orders.verifications unavailable", zap.Error(err))
	}
	if m.shortfalls, err = meter.Int64Counter("stock.shortfalls", metric.WithDescription("Units that could not be decremented after payment")); err != nil {
		logger.Warn("metrics: stock.shortfalls unavailable", zap.Error(err))
	}
	return m
}

// OrderPlaced increments the placed counter.
func (m *OrderMetrics) OrderPlaced(ctx context.Context, method string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", method)))
}

// Verification records a verification outcome such as "confirmed" or "duplicate".
func (m *OrderMetrics) Verification(ctx context.Context, outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Shortfall records units of stock missing at confirmation time.
func (m *OrderMetrics) Shortfall(ctx context.Context, units int) {
	if m == nil || m.shortfalls == nil || units <= 0 {
		return
	}
	m.shortfalls.Add(ctx, int64(units))
}
