package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

const (
	credentialAttempts = 10
	credentialWindow   = time.Minute
)

// UserHandlers exposes registration, login, wishlist and recommendation endpoints.
type UserHandlers struct {
	authn     *auth.Authenticator
	users     services.UserService
	recommend services.RecommendationService
	limiter   rateLimiter
}

// UserHandlersOption customises UserHandlers.
type UserHandlersOption func(*UserHandlers)

// WithCredentialRateLimit overrides the per-address login and register budget. A non-positive
// limit disables throttling.
func WithCredentialRateLimit(limit int, period time.Duration, clock func() time.Time) UserHandlersOption {
	return func(h *UserHandlers) {
		h.limiter = newWindowLimiter(limit, period, clock)
	}
}

// NewUserHandlers constructs the /user handlers.
func NewUserHandlers(authn *auth.Authenticator, users services.UserService, recommend services.RecommendationService, opts ...UserHandlersOption) *UserHandlers {
	h := &UserHandlers{
		authn:     authn,
		users:     users,
		recommend: recommend,
		limiter:   newWindowLimiter(credentialAttempts, credentialWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /user endpoints onto the provided router.
func (h *UserHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(throttle(h.limiter, "register")).Post("/register", h.register)
	r.With(throttle(h.limiter, "login")).Post("/login", h.login)
	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireUser())
		}
		user.Get("/wishlist", h.getWishlist)
		user.Post("/wishlist/toggle", h.toggleWishlist)
		user.Get("/recommendations", h.recommendations)
	})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type wishlistToggleRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func authPayload(result services.AuthResult) map[string]any {
	return map[string]any{
		"token":     result.Token,
		"expiresAt": formatTime(result.ExpiresAt),
		"user": userPayload{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
			Role:  string(result.User.Role),
		},
	}
}

func (h *UserHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "user")
		return
	}
	var req registerRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	result, err := h.users.Register(ctx, services.RegisterCommand{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Account created", authPayload(result))
}

func (h *UserHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "user")
		return
	}
	var req loginRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	result, err := h.users.Login(ctx, services.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", authPayload(result))
}

func (h *UserHandlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "user")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	ids, err := h.users.GetWishlist(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"wishlist": ids})
}

func (h *UserHandlers) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, "user")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req wishlistToggleRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	result, err := h.users.ToggleWishlist(ctx, identity.UserID, req.ProductID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	message := "Removed from wishlist"
	if result.Added {
		message = "Added to wishlist"
	}
	ids := result.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	httpx.WriteSuccess(w, http.StatusOK, message, map[string]any{"wishlist": ids, "added": result.Added})
}

func (h *UserHandlers) recommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recommend == nil {
		writeUnavailable(ctx, w, "recommendation")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	products, err := h.recommend.Recommend(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"products": buildProductPayloads(products)})
}
