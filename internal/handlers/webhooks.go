package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/observability"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

const (
	maxWebhookBodySize    = 256 * 1024
	stripeSignatureHeader = "Stripe-Signature"
)

// WebhookHandlers receives payment provider callbacks. Authenticity comes from the provider
// signature rather than a user credential.
type WebhookHandlers struct {
	payments services.PaymentService
}

// NewWebhookHandlers constructs the /webhooks handlers.
func NewWebhookHandlers(payments services.PaymentService) *WebhookHandlers {
	return &WebhookHandlers{payments: payments}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripe)
}

func (h *WebhookHandlers) stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		writeUnavailable(ctx, w, "payment")
		return
	}
	signature := strings.TrimSpace(r.Header.Get(stripeSignatureHeader))
	if signature == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "missing Stripe-Signature header", http.StatusBadRequest))
		return
	}
	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			writeBadRequest(ctx, w, err.Error())
		}
		return
	}

	result, err := h.payments.HandleStripeWebhook(ctx, body, signature)
	if err != nil {
		if !errors.Is(err, services.ErrPaymentSignature) {
			observability.FromContext(ctx).Sugar().Errorw("stripe webhook failed", "error", err)
		}
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"received": true,
		"handled":  result.Handled,
		"eventId":  result.EventID,
		"type":     result.Type,
	})
}
