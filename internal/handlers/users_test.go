package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

func userRouter(h *UserHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/user", h.Routes)
	return router
}

func TestUserHandlersRegisterAndLogin(t *testing.T) {
	expires := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	users := &stubUserService{
		registerFunc: func(_ context.Context, cmd services.RegisterCommand) (services.AuthResult, error) {
			if cmd.Email == "taken@example.com" {
				return services.AuthResult{}, services.ErrUserConflict
			}
			return services.AuthResult{
				User:      services.User{ID: "usr_1", Name: cmd.Name, Email: cmd.Email, Role: domain.RoleUser},
				Token:     "signed",
				ExpiresAt: expires,
			}, nil
		},
		loginFunc: func(_ context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
			if cmd.Password != "correct-horse" {
				return services.AuthResult{}, services.ErrUserInvalidCredentials
			}
			return services.AuthResult{User: services.User{ID: "usr_1", Role: domain.RoleUser}, Token: "signed"}, nil
		},
	}
	router := userRouter(NewUserHandlers(nil, users, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/user/register", map[string]any{"name": "Asha", "email": "asha@example.com", "password": "correct-horse"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["token"] != "signed" || body["expiresAt"] != "2024-06-01T00:00:00Z" {
		t.Fatalf("unexpected body %v", body)
	}
	if user := body["user"].(map[string]any); user["role"] != "user" || user["id"] != "usr_1" {
		t.Fatalf("unexpected user %v", user)
	}
	if _, leaked := body["user"].(map[string]any)["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/user/register", map[string]any{"name": "Asha", "email": "taken@example.com", "password": "correct-horse"}))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/user/register", map[string]any{"name": "Asha", "email": "not-an-email", "password": "short"}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	fields := decodeBody(t, rr)["fields"].([]any)
	if len(fields) != 2 {
		t.Fatalf("expected email and password to be reported, got %v", fields)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/user/login", map[string]any{"email": "asha@example.com", "password": "wrong"}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "invalid email or password" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestUserHandlersCredentialRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := &stubUserService{
		loginFunc: func(context.Context, services.LoginCommand) (services.AuthResult, error) {
			return services.AuthResult{}, services.ErrUserInvalidCredentials
		},
	}
	router := userRouter(NewUserHandlers(nil, users, nil, WithCredentialRateLimit(2, time.Minute, func() time.Time { return now })))

	attempt := func(remote string) int {
		req := jsonRequest(t, http.MethodPost, "/user/login", map[string]any{"email": "a@example.com", "password": "x"})
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := attempt("10.0.0.1:1234"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := attempt("10.0.0.1:5678"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := attempt("10.0.0.1:9999"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", code)
	}
	if code := attempt("10.0.0.2:1234"); code != http.StatusUnauthorized {
		t.Fatalf("expected other address to be unaffected, got %d", code)
	}
	now = now.Add(2 * time.Minute)
	if code := attempt("10.0.0.1:1234"); code != http.StatusUnauthorized {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestUserHandlersWishlistAndRecommendations(t *testing.T) {
	users := &stubUserService{
		wishlistFunc: func(_ context.Context, userID string) ([]string, error) {
			return nil, nil
		},
		toggleFunc: func(_ context.Context, userID, productID string) (services.WishlistResult, error) {
			if productID == "prd_gone" {
				return services.WishlistResult{}, fmt.Errorf("%w: %s", services.ErrProductNotFound, productID)
			}
			return services.WishlistResult{ProductIDs: []string{productID}, Added: true}, nil
		},
	}
	recommend := &stubRecommendationService{
		recommendFunc: func(_ context.Context, userID string) ([]services.Product, error) {
			if userID != "usr_1" {
				t.Fatalf("unexpected user %s", userID)
			}
			return []services.Product{{ID: "prd_7", Name: "Scarf"}}, nil
		},
	}
	router := userRouter(NewUserHandlers(nil, users, recommend))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/user/wishlist", nil), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if list := decodeBody(t, rr)["wishlist"].([]any); len(list) != 0 {
		t.Fatalf("expected empty wishlist, got %v", list)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/user/wishlist/toggle", map[string]any{"productId": "prd_7"}), "usr_1", auth.RoleUser))
	body := decodeBody(t, rr)
	if rr.Code != http.StatusOK || body["added"] != true || body["message"] != "Added to wishlist" {
		t.Fatalf("unexpected toggle response %d %v", rr.Code, body)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/user/wishlist/toggle", map[string]any{"productId": "prd_gone"}), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/user/recommendations", nil), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if products := decodeBody(t, rr)["products"].([]any); len(products) != 1 {
		t.Fatalf("expected one recommendation, got %v", products)
	}
}

func TestCartHandlers(t *testing.T) {
	cart := services.Cart{}
	var lastUpdate services.CartItemCommand
	users := &stubUserService{
		getCartFunc: func(context.Context, string) (services.Cart, error) { return cart.Clone(), nil },
		addFunc: func(_ context.Context, cmd services.CartItemCommand) (services.Cart, error) {
			if cmd.Size == "XXL" {
				return nil, fmt.Errorf("%w: size XXL is not offered", services.ErrUserInvalidInput)
			}
			cart.Set(cmd.ProductID, cmd.Size, cart.Quantity(cmd.ProductID, cmd.Size)+1)
			return cart.Clone(), nil
		},
		updateFunc: func(_ context.Context, cmd services.CartItemCommand) (services.Cart, error) {
			lastUpdate = cmd
			cart.Set(cmd.ProductID, cmd.Size, cmd.Quantity)
			return cart.Clone(), nil
		},
	}
	router := chi.NewRouter()
	router.Route("/cart", NewCartHandlers(nil, users).Routes)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/cart/add", map[string]any{"productId": "prd_1", "size": "M"}), "usr_1", auth.RoleUser))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "usr_1", auth.RoleUser))
	data := decodeBody(t, rr)["cartData"].(map[string]any)
	if data["prd_1"].(map[string]any)["M"] != float64(2) {
		t.Fatalf("expected quantity 2, got %v", data)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store cache header")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/cart/update", map[string]any{"productId": "prd_1", "size": "M", "quantity": 0}), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusOK || lastUpdate.Quantity != 0 {
		t.Fatalf("unexpected update %d %+v", rr.Code, lastUpdate)
	}
	if data := decodeBody(t, rr)["cartData"].(map[string]any); len(data) != 0 {
		t.Fatalf("expected empty cart, got %v", data)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/cart/add", map[string]any{"productId": "prd_1", "size": "XXL"}), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(jsonRequest(t, http.MethodPost, "/cart/update", map[string]any{"productId": "prd_1", "size": "M", "quantity": -1}), "usr_1", auth.RoleUser))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative quantity, got %d", rr.Code)
	}
}
