package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

const (
	maxMultipartMemory = 8 << 20
	maxUploadBodySize  = 32 << 20
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

// writeServiceError maps service sentinels onto HTTP statuses. Configuration failures are
// reported generically; their detail only reaches the logs.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var validationErr *validation.Error
	var stockErr *repositories.StockError
	switch {
	case errors.As(err, &validationErr):
		apiErr := httpx.NewError("invalid_request", validationErr.Message, http.StatusBadRequest)
		if len(validationErr.Fields) > 0 {
			apiErr = apiErr.WithDetails(map[string]any{"fields": validationErr.Fields})
		}
		httpx.WriteError(ctx, w, apiErr)
	case errors.Is(err, services.ErrStockUnavailable) && errors.As(err, &stockErr):
		httpx.WriteError(ctx, w, httpx.NewError("stock_unavailable", stockErr.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"productId": stockErr.ProductID, "size": stockErr.Size}))
	case errors.Is(err, services.ErrStockUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("stock_unavailable", detail(err, services.ErrStockUnavailable), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", detail(err, services.ErrOrderInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", detail(err, services.ErrProductInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", detail(err, services.ErrUserInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", detail(err, services.ErrDiscountInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrReturnInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", detail(err, services.ErrReturnInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentSignature):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "payment verification failed", http.StatusBadRequest))
	case errors.Is(err, services.ErrUserInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid email or password", http.StatusUnauthorized))
	case errors.Is(err, services.ErrOrderForbidden), errors.Is(err, services.ErrReturnForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to access this resource", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReturnNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("return_not_found", "return request not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", detail(err, services.ErrOrderInvalidState), http.StatusConflict))
	case errors.Is(err, services.ErrReturnInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", detail(err, services.ErrReturnInvalidState), http.StatusConflict))
	case errors.Is(err, services.ErrReturnConflict):
		httpx.WriteError(ctx, w, httpx.NewError("return_exists", "an active return request already exists for this order", http.StatusConflict))
	case errors.Is(err, services.ErrUserConflict):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "email already registered", http.StatusConflict))
	case errors.Is(err, services.ErrPaymentUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_error", "payment gateway request failed", http.StatusBadGateway))
	case errors.Is(err, services.ErrPaymentNotConfigured), errors.Is(err, services.ErrImageStoreNotConfigured):
		httpx.WriteError(ctx, w, httpx.NewError("service_misconfigured", "service temporarily unavailable", http.StatusInternalServerError))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

// detail strips the sentinel prefix so only the caller-facing reason remains.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service is unavailable", http.StatusServiceUnavailable))
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UserID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func viewerFrom(identity *auth.Identity) services.Viewer {
	return services.Viewer{UserID: identity.UserID, Role: services.Role(strings.ToLower(identity.Role))}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// parseMultipart parses the form and opens every file under field. The returned closer
// releases the opened files and the temporary form storage.
func parseMultipart(w http.ResponseWriter, r *http.Request, field string) ([]services.ImageFile, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, func() {}, validation.Newf("invalid multipart form: %v", err)
	}
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	headers := r.MultipartForm.File[field]
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, validation.Newf("cannot read image %s", fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, services.ImageFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return files, closeAll, nil
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func timePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}

type sizePayload struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

type productPayload struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Price       json.Number   `json:"price"`
	Category    string        `json:"category,omitempty"`
	SubCategory string        `json:"subCategory,omitempty"`
	Images      []string      `json:"images"`
	Sizes       []sizePayload `json:"sizes"`
	Bestseller  bool          `json:"bestseller"`
	CreatedAt   string        `json:"createdAt,omitempty"`
}

func buildProductPayload(p services.Product) productPayload {
	payload := productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Images:      append([]string{}, p.Images...),
		Sizes:       make([]sizePayload, 0, len(p.Sizes)),
		Bestseller:  p.Bestseller,
		CreatedAt:   formatTime(p.CreatedAt),
	}
	for _, s := range p.Sizes {
		payload.Sizes = append(payload.Sizes, sizePayload{Size: s.Size, Stock: s.Stock})
	}
	return payload
}

func buildProductPayloads(products []services.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

type addressPayload struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"required,max=80"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Street    string `json:"street" validate:"required,max=200"`
	City      string `json:"city" validate:"required,max=80"`
	State     string `json:"state" validate:"required,max=80"`
	Zipcode   string `json:"zipcode" validate:"required,max=20"`
	Country   string `json:"country" validate:"required,max=80"`
	Phone     string `json:"phone" validate:"required,max=32"`
}

func (a addressPayload) toDomain() services.Address {
	return services.Address{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Email:     strings.TrimSpace(a.Email),
		Street:    strings.TrimSpace(a.Street),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		Zipcode:   strings.TrimSpace(a.Zipcode),
		Country:   strings.TrimSpace(a.Country),
		Phone:     strings.TrimSpace(a.Phone),
	}
}

func buildAddressPayload(a services.Address) addressPayload {
	return addressPayload{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Zipcode:   a.Zipcode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}

type orderLinePayload struct {
	ProductID string      `json:"productId"`
	Size      string      `json:"size"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
	Name      string      `json:"name,omitempty"`
	Image     string      `json:"image,omitempty"`
}

type orderPayload struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	Items            []orderLinePayload `json:"items"`
	Amount           json.Number        `json:"amount"`
	Currency         string             `json:"currency"`
	Address          addressPayload     `json:"address"`
	PaymentMethod    string             `json:"paymentMethod"`
	Payment          bool               `json:"payment"`
	Status           string             `json:"status"`
	GatewayOrderID   string             `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string             `json:"gatewayPaymentId,omitempty"`
	ExpectedDelivery *string            `json:"expectedDelivery,omitempty"`
	CreatedAt        string             `json:"createdAt"`
	UpdatedAt        string             `json:"updatedAt,omitempty"`
}

func buildOrderPayload(o services.Order) orderPayload {
	payload := orderPayload{
		ID:               o.ID,
		UserID:           o.UserID,
		Items:            make([]orderLinePayload, 0, len(o.Items)),
		Amount:           money(o.Amount),
		Currency:         o.Currency,
		Address:          buildAddressPayload(o.Address),
		PaymentMethod:    string(o.PaymentMethod),
		Payment:          o.PaymentSettled,
		Status:           string(o.Status),
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		ExpectedDelivery: timePtr(o.ExpectedDelivery),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
	for _, line := range o.Items {
		payload.Items = append(payload.Items, orderLinePayload{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: money(line.UnitPrice),
			Name:      line.Name,
			Image:     line.Image,
		})
	}
	return payload
}

func buildOrderPayloads(orders []services.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, buildOrderPayload(o))
	}
	return out
}

type returnPayload struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"orderId"`
	UserID    string   `json:"userId"`
	Reason    string   `json:"reason"`
	Images    []string `json:"images"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

func buildReturnPayload(req services.ReturnRequest) returnPayload {
	return returnPayload{
		ID:        req.ID,
		OrderID:   req.OrderID,
		UserID:    req.UserID,
		Reason:    req.Reason,
		Images:    append([]string{}, req.Images...),
		Status:    string(req.Status),
		CreatedAt: formatTime(req.CreatedAt),
		UpdatedAt: formatTime(req.UpdatedAt),
	}
}

func buildReturnPayloads(reqs []services.ReturnRequest) []returnPayload {
	out := make([]returnPayload, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, buildReturnPayload(req))
	}
	return out
}

type discountPayload struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     string      `json:"userId,omitempty"`
	MinPrice   json.Number `json:"minPrice"`
	MaxPrice   json.Number `json:"maxPrice"`
	Percentage json.Number `json:"percentage"`
	CreatedBy  string      `json:"createdBy,omitempty"`
	CreatedAt  string      `json:"createdAt"`
}

func buildDiscountPayload(d services.Discount) discountPayload {
	return discountPayload{
		ID:         d.ID,
		Type:       string(d.Type),
		UserID:     d.UserID,
		MinPrice:   money(d.MinPrice),
		MaxPrice:   money(d.MaxPrice),
		Percentage: json.Number(d.Percentage.String()),
		CreatedBy:  d.CreatedBy,
		CreatedAt:  formatTime(d.CreatedAt),
	}
}

func buildDiscountPayloads(discounts []services.Discount) []discountPayload {
	out := make([]discountPayload, 0, len(discounts))
	for _, d := range discounts {
		out = append(out, buildDiscountPayload(d))
	}
	return out
}
