package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/pagination"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

const (
	defaultIdempotencyHeader = "Idempotency-Key"
	defaultOrderPageSize     = 50
	maxOrderPageSize         = 100
)

// OrderHandlers exposes order placement, payment confirmation and fulfilment endpoints.
type OrderHandlers struct {
	authn    *auth.Authenticator
	orders   services.OrderService
	payments services.PaymentService
	workflow services.OrderWorkflowService

	idempotency       func(http.Handler) http.Handler
	idempotencyHeader string
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithOrderIdempotency installs the replay middleware on order creation routes. It must run
// after authentication so keys are scoped per user.
func WithOrderIdempotency(mw func(http.Handler) http.Handler, header string) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
		if header = strings.TrimSpace(header); header != "" {
			h.idempotencyHeader = header
		}
	}
}

// NewOrderHandlers constructs the /order handlers.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, payments services.PaymentService, workflow services.OrderWorkflowService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:             authn,
		orders:            orders,
		payments:          payments,
		workflow:          workflow,
		idempotencyHeader: defaultIdempotencyHeader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /order endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireUser())
		}
		user.Group(func(create chi.Router) {
			if h.idempotency != nil {
				create.Use(h.idempotency)
			}
			create.Post("/place", h.placeCOD)
			create.Post("/razorpay", h.placeGateway(payments.ProviderRazorpay))
			create.Post("/stripe", h.placeGateway(payments.ProviderStripe))
		})
		user.Post("/verify", h.verify)
		user.Post("/userorders", h.userOrders)
	})
	r.Group(func(staff chi.Router) {
		if h.authn != nil {
			staff.Use(h.authn.Require(auth.RoleAdmin, auth.RoleManager, auth.RoleLogistics))
		}
		staff.Get("/all-orders", h.allOrders)
	})
	r.Group(func(ops chi.Router) {
		if h.authn != nil {
			ops.Use(h.authn.AdminOrLogistics())
		}
		ops.Post("/status", h.setStatus)
	})
	r.Group(func(finance chi.Router) {
		if h.authn != nil {
			finance.Use(h.authn.AdminOrManager())
		}
		finance.Post("/confirm-payment", h.confirmPayment)
	})
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Size      string `json:"size" validate:"required,max=16"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
}

type placeOrderRequest struct {
	UserID  string             `json:"userId" validate:"omitempty,max=64"`
	Items   []orderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	Amount  *decimal.Decimal   `json:"amount" validate:"omitempty,gt=0"`
	Address addressPayload     `json:"address"`
}

type verifyRequest struct {
	Provider          string `json:"provider" validate:"omitempty,oneof=razorpay stripe"`
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required_without=PaymentIntentID"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required_with=RazorpayOrderID"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required_with=RazorpayOrderID"`
	PaymentIntentID   string `json:"paymentIntentId" validate:"required_without=RazorpayOrderID"`
}

type setStatusRequest struct {
	OrderID          string `json:"orderId" validate:"required"`
	Status           string `json:"status" validate:"required,max=40"`
	ExpectedDelivery string `json:"expectedDelivery"`
	Force            bool   `json:"force"`
}

type confirmPaymentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// placeCommand decodes the order body and binds it to the authenticated caller. A userId
// naming someone else is refused.
func (h *OrderHandlers) placeCommand(w http.ResponseWriter, r *http.Request) (services.PlaceOrderCommand, bool) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return services.PlaceOrderCommand{}, false
	}
	var req placeOrderRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return services.PlaceOrderCommand{}, false
	}
	if claimed := strings.TrimSpace(req.UserID); claimed != "" && claimed != identity.UserID {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "orders can only be placed for the signed-in user", http.StatusForbidden))
		return services.PlaceOrderCommand{}, false
	}
	cmd := services.PlaceOrderCommand{
		UserID:         identity.UserID,
		Items:          make([]services.OrderItemInput, 0, len(req.Items)),
		Amount:         req.Amount,
		Address:        req.Address.toDomain(),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(h.idempotencyHeader)),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			ProductID: strings.TrimSpace(item.ProductID),
			Size:      strings.TrimSpace(item.Size),
			Quantity:  item.Quantity,
		})
	}
	return cmd, true
}

func (h *OrderHandlers) placeCOD(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	cmd, ok := h.placeCommand(w, r)
	if !ok {
		return
	}
	order, err := h.orders.PlaceCOD(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Order Placed", map[string]any{"order": buildOrderPayload(order)})
}

func (h *OrderHandlers) placeGateway(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.orders == nil {
			writeUnavailable(ctx, w, "order")
			return
		}
		cmd, ok := h.placeCommand(w, r)
		if !ok {
			return
		}
		cmd.Gateway = provider
		checkout, err := h.orders.PlaceGateway(ctx, cmd)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		data := map[string]any{
			"order":    buildOrderPayload(checkout.Order),
			"provider": checkout.Provider,
			"amount":   checkout.AmountMinor,
			"currency": checkout.Currency,
		}
		switch checkout.Provider {
		case payments.ProviderStripe:
			data["paymentIntentId"] = checkout.GatewayOrderID
			data["clientSecret"] = checkout.ClientSecret
			data["publishableKey"] = checkout.PublicKey
		default:
			data["orderId"] = checkout.GatewayOrderID
			data["keyId"] = checkout.PublicKey
		}
		httpx.WriteSuccess(w, http.StatusCreated, "", data)
	}
}

func (h *OrderHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		writeUnavailable(ctx, w, "payment")
		return
	}
	var req verifyRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	cmd := services.VerifyPaymentCommand{
		Provider:         strings.ToLower(strings.TrimSpace(req.Provider)),
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	}
	if strings.TrimSpace(req.PaymentIntentID) != "" && strings.TrimSpace(req.RazorpayOrderID) == "" {
		cmd.Provider = payments.ProviderStripe
		cmd.GatewayOrderID = req.PaymentIntentID
	}
	if cmd.Provider == "" {
		cmd.Provider = payments.ProviderRazorpay
	}
	result, err := h.payments.Verify(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	message := "Payment Successful"
	if result.AlreadyConfirmed {
		message = "Payment already confirmed"
	}
	httpx.WriteSuccess(w, http.StatusOK, message, map[string]any{"order": buildOrderPayload(result.Order)})
}

func (h *OrderHandlers) userOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orders, err := h.orders.ListUserOrders(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"orders": buildOrderPayloads(orders)})
}

func (h *OrderHandlers) allOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
		AllowedFilters:  []string{"status"},
	})
	if err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	filter := repositories.OrderListFilter{PageSize: params.PageSize, Cursor: params.Cursor}
	if raw, ok := params.Filters["status"]; ok {
		status, known := domain.ParseOrderStatus(raw)
		if !known {
			writeBadRequest(ctx, w, "unknown order status "+raw)
			return
		}
		filter.Status = status
	}
	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	data := map[string]any{"orders": buildOrderPayloads(page.Items)}
	if page.NextPageToken != "" {
		data["nextPageToken"] = page.NextPageToken
	}
	httpx.WriteSuccess(w, http.StatusOK, "", data)
}

func (h *OrderHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.workflow == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if req.Force && !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "only admins may force a status change", http.StatusForbidden))
		return
	}
	cmd := services.SetOrderStatusCommand{
		OrderID: req.OrderID,
		Status:  req.Status,
		Force:   req.Force,
		ActorID: identity.UserID,
	}
	if raw := strings.TrimSpace(req.ExpectedDelivery); raw != "" {
		expected, err := parseDeliveryDate(raw)
		if err != nil {
			writeServiceError(ctx, w, &validation.Error{Message: "expectedDelivery must be a date or RFC 3339 timestamp", Fields: []string{"expectedDelivery"}})
			return
		}
		cmd.ExpectedDelivery = &expected
	}
	order, err := h.workflow.SetStatus(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Status Updated", map[string]any{"order": buildOrderPayload(order)})
}

func (h *OrderHandlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.workflow == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	order, err := h.workflow.ConfirmPayment(ctx, services.ConfirmPaymentCommand{OrderID: req.OrderID, ActorID: identity.UserID})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Payment confirmed", map[string]any{"order": buildOrderPayload(order)})
}

func parseDeliveryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
