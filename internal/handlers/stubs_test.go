package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

type stubVerifier map[string]*auth.Identity

func (v stubVerifier) Verify(_ context.Context, raw string) (*auth.Identity, error) {
	identity, ok := v[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return identity, nil
}

type stubCatalogService struct {
	listFunc   func(ctx context.Context) ([]services.Product, error)
	getFunc    func(ctx context.Context, productID string) (services.Product, error)
	addFunc    func(ctx context.Context, cmd services.AddProductCommand) (services.Product, error)
	removeFunc func(ctx context.Context, productID string) error
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]services.Product, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getFunc == nil {
		return services.Product{}, services.ErrProductNotFound
	}
	return s.getFunc(ctx, productID)
}

func (s *stubCatalogService) AddProduct(ctx context.Context, cmd services.AddProductCommand) (services.Product, error) {
	if s.addFunc == nil {
		return services.Product{}, errors.New("not implemented")
	}
	return s.addFunc(ctx, cmd)
}

func (s *stubCatalogService) RemoveProduct(ctx context.Context, productID string) error {
	if s.removeFunc == nil {
		return nil
	}
	return s.removeFunc(ctx, productID)
}

type stubUserService struct {
	registerFunc func(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error)
	loginFunc    func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error)
	getCartFunc  func(ctx context.Context, userID string) (services.Cart, error)
	addFunc      func(ctx context.Context, cmd services.CartItemCommand) (services.Cart, error)
	updateFunc   func(ctx context.Context, cmd services.CartItemCommand) (services.Cart, error)
	wishlistFunc func(ctx context.Context, userID string) ([]string, error)
	toggleFunc   func(ctx context.Context, userID, productID string) (services.WishlistResult, error)
}

func (s *stubUserService) Register(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error) {
	return s.registerFunc(ctx, cmd)
}

func (s *stubUserService) Login(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
	return s.loginFunc(ctx, cmd)
}

func (s *stubUserService) GetCart(ctx context.Context, userID string) (services.Cart, error) {
	return s.getCartFunc(ctx, userID)
}

func (s *stubUserService) AddToCart(ctx context.Context, cmd services.CartItemCommand) (services.Cart, error) {
	return s.addFunc(ctx, cmd)
}

func (s *stubUserService) UpdateCart(ctx context.Context, cmd services.CartItemCommand) (services.Cart, error) {
	return s.updateFunc(ctx, cmd)
}

func (s *stubUserService) GetWishlist(ctx context.Context, userID string) ([]string, error) {
	return s.wishlistFunc(ctx, userID)
}

func (s *stubUserService) ToggleWishlist(ctx context.Context, userID, productID string) (services.WishlistResult, error) {
	return s.toggleFunc(ctx, userID, productID)
}

type stubRecommendationService struct {
	recommendFunc func(ctx context.Context, userID string) ([]services.Product, error)
	recomputeFunc func(ctx context.Context) error
	triggered     int
}

func (s *stubRecommendationService) Recommend(ctx context.Context, userID string) ([]services.Product, error) {
	return s.recommendFunc(ctx, userID)
}

func (s *stubRecommendationService) Recompute(ctx context.Context) error {
	if s.recomputeFunc == nil {
		return nil
	}
	return s.recomputeFunc(ctx)
}

func (s *stubRecommendationService) Trigger() { s.triggered++ }

type stubDiscountService struct {
	createFunc     func(ctx context.Context, cmd services.CreateDiscountCommand) (services.Discount, error)
	deleteFunc     func(ctx context.Context, discountID string) error
	listFunc       func(ctx context.Context, filter repositories.DiscountFilter) ([]services.Discount, error)
	applicableFunc func(ctx context.Context, userID string, price decimal.Decimal) (services.ApplicableDiscounts, error)
}

func (s *stubDiscountService) CreateDiscount(ctx context.Context, cmd services.CreateDiscountCommand) (services.Discount, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubDiscountService) DeleteDiscount(ctx context.Context, discountID string) error {
	return s.deleteFunc(ctx, discountID)
}

func (s *stubDiscountService) ListDiscounts(ctx context.Context, filter repositories.DiscountFilter) ([]services.Discount, error) {
	return s.listFunc(ctx, filter)
}

func (s *stubDiscountService) Applicable(ctx context.Context, userID string, price decimal.Decimal) (services.ApplicableDiscounts, error) {
	return s.applicableFunc(ctx, userID, price)
}

func (s *stubDiscountService) PriceBook(context.Context, string) (services.PriceBook, error) {
	return services.PriceBook{}, nil
}

type stubOrderService struct {
	placeCODFunc     func(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error)
	placeGatewayFunc func(ctx context.Context, cmd services.PlaceOrderCommand) (services.GatewayCheckout, error)
	listUserFunc     func(ctx context.Context, userID string) ([]services.Order, error)
	listFunc         func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[services.Order], error)
}

func (s *stubOrderService) PlaceCOD(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	return s.placeCODFunc(ctx, cmd)
}

func (s *stubOrderService) PlaceGateway(ctx context.Context, cmd services.PlaceOrderCommand) (services.GatewayCheckout, error) {
	return s.placeGatewayFunc(ctx, cmd)
}

func (s *stubOrderService) ListUserOrders(ctx context.Context, userID string) ([]services.Order, error) {
	return s.listUserFunc(ctx, userID)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[services.Order], error) {
	return s.listFunc(ctx, filter)
}

type stubPaymentService struct {
	verifyFunc  func(ctx context.Context, cmd services.VerifyPaymentCommand) (services.VerifyResult, error)
	webhookFunc func(ctx context.Context, payload []byte, signature string) (services.WebhookResult, error)
}

func (s *stubPaymentService) Verify(ctx context.Context, cmd services.VerifyPaymentCommand) (services.VerifyResult, error) {
	return s.verifyFunc(ctx, cmd)
}

func (s *stubPaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (services.WebhookResult, error) {
	return s.webhookFunc(ctx, payload, signature)
}

type stubWorkflowService struct {
	setStatusFunc func(ctx context.Context, cmd services.SetOrderStatusCommand) (services.Order, error)
	confirmFunc   func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.Order, error)
}

func (s *stubWorkflowService) SetStatus(ctx context.Context, cmd services.SetOrderStatusCommand) (services.Order, error) {
	return s.setStatusFunc(ctx, cmd)
}

func (s *stubWorkflowService) ConfirmPayment(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.Order, error) {
	return s.confirmFunc(ctx, cmd)
}

type stubReturnService struct {
	createFunc      func(ctx context.Context, cmd services.CreateReturnCommand) (services.ReturnRequest, error)
	listFunc        func(ctx context.Context, viewer services.Viewer) ([]services.ReturnRequest, error)
	listByOrderFunc func(ctx context.Context, viewer services.Viewer, orderID string) ([]services.ReturnRequest, error)
	updateFunc      func(ctx context.Context, cmd services.UpdateReturnStatusCommand) (services.ReturnRequest, error)
	deleteFunc      func(ctx context.Context, requestID string) error
}

func (s *stubReturnService) Create(ctx context.Context, cmd services.CreateReturnCommand) (services.ReturnRequest, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubReturnService) List(ctx context.Context, viewer services.Viewer) ([]services.ReturnRequest, error) {
	return s.listFunc(ctx, viewer)
}

func (s *stubReturnService) ListByOrder(ctx context.Context, viewer services.Viewer, orderID string) ([]services.ReturnRequest, error) {
	return s.listByOrderFunc(ctx, viewer, orderID)
}

func (s *stubReturnService) UpdateStatus(ctx context.Context, cmd services.UpdateReturnStatusCommand) (services.ReturnRequest, error) {
	return s.updateFunc(ctx, cmd)
}

func (s *stubReturnService) Delete(ctx context.Context, requestID string) error {
	return s.deleteFunc(ctx, requestID)
}

var (
	_ services.CatalogService        = (*stubCatalogService)(nil)
	_ services.UserService           = (*stubUserService)(nil)
	_ services.RecommendationService = (*stubRecommendationService)(nil)
	_ services.DiscountService       = (*stubDiscountService)(nil)
	_ services.OrderService          = (*stubOrderService)(nil)
	_ services.PaymentService        = (*stubPaymentService)(nil)
	_ services.OrderWorkflowService  = (*stubWorkflowService)(nil)
	_ services.ReturnService         = (*stubReturnService)(nil)
)

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: userID, Role: role}))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func sampleAddress() map[string]any {
	return map[string]any{
		"firstName": "Asha",
		"lastName":  "Rao",
		"email":     "asha@example.com",
		"street":    "12 MG Road",
		"city":      "Pune",
		"state":     "MH",
		"zipcode":   "411001",
		"country":   "India",
		"phone":     "9999999999",
	}
}
