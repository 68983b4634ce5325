package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

func productRouter(h *ProductHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/product", h.Routes)
	return router
}

func TestProductHandlersListAndGet(t *testing.T) {
	catalog := &stubCatalogService{
		listFunc: func(context.Context) ([]services.Product, error) {
			return []services.Product{{
				ID:    "prd_1",
				Name:  "Linen Shirt",
				Price: decimal.RequireFromString("1299.5"),
				Sizes: []services.SizeStock{{Size: "M", Stock: 3}},
			}}, nil
		},
		getFunc: func(_ context.Context, productID string) (services.Product, error) {
			if productID != "prd_1" {
				return services.Product{}, fmt.Errorf("%w: %s", services.ErrProductNotFound, productID)
			}
			return services.Product{ID: "prd_1", Name: "Linen Shirt"}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/product/list", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	products := decodeBody(t, rr)["products"].([]any)
	first := products[0].(map[string]any)
	if first["price"] != 1299.5 {
		t.Fatalf("expected numeric price, got %v", first["price"])
	}
	if sizes := first["sizes"].([]any); len(sizes) != 1 || sizes[0].(map[string]any)["stock"] != float64(3) {
		t.Fatalf("unexpected sizes %v", sizes)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/product/prd_1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/product/prd_404", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "product_not_found" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestProductHandlersAddJSON(t *testing.T) {
	var captured services.AddProductCommand
	catalog := &stubCatalogService{
		addFunc: func(_ context.Context, cmd services.AddProductCommand) (services.Product, error) {
			captured = cmd
			return services.Product{ID: "prd_new", Name: cmd.Name, Price: cmd.Price, Sizes: cmd.Sizes}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	payload := map[string]any{
		"name":       "Denim Jacket",
		"price":      2499,
		"category":   "Men",
		"sizes":      []map[string]any{{"size": "L", "stock": 4}},
		"bestseller": true,
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/product/add", payload))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !captured.Price.Equal(decimal.NewFromInt(2499)) || !captured.Bestseller || len(captured.Sizes) != 1 || captured.Sizes[0].Stock != 4 {
		t.Fatalf("unexpected command %+v", captured)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/product/add", map[string]any{"name": "x", "price": 10, "sizes": []any{}}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without sizes, got %d", rr.Code)
	}

	catalog.addFunc = func(context.Context, services.AddProductCommand) (services.Product, error) {
		return services.Product{}, fmt.Errorf("%w: size L listed twice", services.ErrProductInvalidInput)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/product/add", payload))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "size L listed twice" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestProductHandlersAddMultipart(t *testing.T) {
	var captured services.AddProductCommand
	var uploaded []string
	catalog := &stubCatalogService{
		addFunc: func(_ context.Context, cmd services.AddProductCommand) (services.Product, error) {
			captured = cmd
			for _, file := range cmd.Uploads {
				data, err := io.ReadAll(file.Body)
				if err != nil {
					t.Fatalf("read upload: %v", err)
				}
				uploaded = append(uploaded, file.FileName+":"+file.ContentType+":"+string(data))
			}
			return services.Product{ID: "prd_new", Name: cmd.Name}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("name", "Summer Dress")
	_ = form.WriteField("price", "899.99")
	_ = form.WriteField("sizes", `[{"size":"S","stock":2},{"size":"M","stock":0}]`)
	_ = form.WriteField("bestseller", "false")
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="images"; filename="front.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/product/add", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !captured.Price.Equal(decimal.RequireFromString("899.99")) || len(captured.Sizes) != 2 {
		t.Fatalf("unexpected command %+v", captured)
	}
	if len(uploaded) != 1 || uploaded[0] != "front.png:image/png:png-bytes" {
		t.Fatalf("unexpected uploads %v", uploaded)
	}
}

func TestProductHandlersAddMultipartRejectsBadSizes(t *testing.T) {
	catalog := &stubCatalogService{
		addFunc: func(context.Context, services.AddProductCommand) (services.Product, error) {
			t.Fatalf("service must not be called")
			return services.Product{}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("name", "Summer Dress")
	_ = form.WriteField("price", "899.99")
	_ = form.WriteField("sizes", `S,M`)
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/product/add", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProductHandlersImageStoreMisconfigured(t *testing.T) {
	catalog := &stubCatalogService{
		addFunc: func(context.Context, services.AddProductCommand) (services.Product, error) {
			return services.Product{}, services.ErrImageStoreNotConfigured
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	payload := map[string]any{"name": "Cap", "price": 5, "sizes": []map[string]any{{"size": "One", "stock": 1}}}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/product/add", payload))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "service temporarily unavailable" {
		t.Fatalf("configuration detail leaked: %v", body["message"])
	}
}
