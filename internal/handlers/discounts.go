package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// DiscountHandlers exposes discount administration and price resolution.
type DiscountHandlers struct {
	authn     *auth.Authenticator
	discounts services.DiscountService
}

// NewDiscountHandlers constructs the /discount handlers.
func NewDiscountHandlers(authn *auth.Authenticator, discounts services.DiscountService) *DiscountHandlers {
	return &DiscountHandlers{authn: authn, discounts: discounts}
}

// Routes wires the /discount endpoints onto the provided router.
func (h *DiscountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireUser())
		}
		user.Get("/applicable", h.applicable)
	})
	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.AdminOnly())
		}
		admin.Post("/create", h.create)
		admin.Get("/list", h.list)
		admin.Delete("/{discountId}", h.remove)
	})
}

type createDiscountRequest struct {
	Type       string          `json:"type" validate:"required"`
	UserID     string          `json:"userId" validate:"omitempty,max=64"`
	MinPrice   decimal.Decimal `json:"minPrice" validate:"gte=0"`
	MaxPrice   decimal.Decimal `json:"maxPrice" validate:"gt=0"`
	Percentage decimal.Decimal `json:"percentage" validate:"gte=0,lte=100"`
}

func (h *DiscountHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeUnavailable(ctx, w, "discount")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req createDiscountRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	discount, err := h.discounts.CreateDiscount(ctx, services.CreateDiscountCommand{
		Type:       domain.DiscountType(strings.ToLower(strings.TrimSpace(req.Type))),
		UserID:     req.UserID,
		MinPrice:   req.MinPrice,
		MaxPrice:   req.MaxPrice,
		Percentage: req.Percentage,
		ActorID:    identity.UserID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Discount created", map[string]any{"discount": buildDiscountPayload(discount)})
}

func (h *DiscountHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeUnavailable(ctx, w, "discount")
		return
	}
	query := r.URL.Query()
	filter := repositories.DiscountFilter{UserID: strings.TrimSpace(query.Get("userId"))}
	switch kind := domain.DiscountType(strings.ToLower(strings.TrimSpace(query.Get("type")))); kind {
	case "":
	case domain.DiscountTypeGlobal, domain.DiscountTypeUser:
		filter.Type = kind
	default:
		writeBadRequest(ctx, w, "type must be global or user")
		return
	}
	discounts, err := h.discounts.ListDiscounts(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"discounts": buildDiscountPayloads(discounts)})
}

func (h *DiscountHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeUnavailable(ctx, w, "discount")
		return
	}
	if err := h.discounts.DeleteDiscount(ctx, chi.URLParam(r, "discountId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Discount deleted", nil)
}

func (h *DiscountHandlers) applicable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeUnavailable(ctx, w, "discount")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("price")))
	if err != nil {
		writeBadRequest(ctx, w, "price query parameter must be a number")
		return
	}
	result, err := h.discounts.Applicable(ctx, identity.UserID, price)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{
		"price":           money(result.Price),
		"effectivePrice":  money(result.EffectivePrice),
		"userDiscounts":   buildDiscountPayloads(result.UserDiscounts),
		"globalDiscounts": buildDiscountPayloads(result.GlobalDiscounts),
	})
}
