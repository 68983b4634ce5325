package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// CartHandlers exposes the authenticated cart of the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewCartHandlers constructs handlers enforcing authentication before touching the cart.
func NewCartHandlers(authn *auth.Authenticator, users services.UserService) *CartHandlers {
	return &CartHandlers{authn: authn, users: users}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser())
	}
	r.Get("/", h.getCart)
	r.Post("/add", h.addToCart)
	r.Post("/update", h.updateCart)
}

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required,max=16"`
}

type cartUpdateRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required,max=16"`
	Quantity  int    `json:"quantity" validate:"min=0,max=99"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	cart, err := h.users.GetCart(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, "", cart)
}

func (h *CartHandlers) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req cartAddRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	cart, err := h.users.AddToCart(ctx, services.CartItemCommand{
		UserID:    identity.UserID,
		ProductID: req.ProductID,
		Size:      req.Size,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, "Added to cart", cart)
}

func (h *CartHandlers) updateCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req cartUpdateRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	cart, err := h.users.UpdateCart(ctx, services.CartItemCommand{
		UserID:    identity.UserID,
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, "Cart updated", cart)
}

func writeCart(w http.ResponseWriter, message string, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store")
	if cart == nil {
		cart = services.Cart{}
	}
	httpx.WriteSuccess(w, http.StatusOK, message, map[string]any{"cartData": cart})
}
