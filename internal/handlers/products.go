package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// ProductHandlers exposes the public catalog and its admin mutations.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewProductHandlers constructs catalog handlers. Mutations require an admin credential.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{authn: authn, catalog: catalog}
}

// Routes wires the /product endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/list", h.listProducts)
	r.Get("/{productId}", h.getProduct)
	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.AdminOnly())
		}
		admin.Post("/add", h.addProduct)
		admin.Delete("/{productId}", h.removeProduct)
	})
}

type sizeRequest struct {
	Size  string `json:"size" validate:"required,max=16"`
	Stock int    `json:"stock" validate:"min=0"`
}

type addProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Category    string          `json:"category" validate:"max=80"`
	SubCategory string          `json:"subCategory" validate:"max=80"`
	Images      []string        `json:"images" validate:"max=6,dive,url"`
	Sizes       []sizeRequest   `json:"sizes" validate:"required,min=1,dive"`
	Bestseller  bool            `json:"bestseller"`
}

func (req addProductRequest) toCommand() services.AddProductCommand {
	cmd := services.AddProductCommand{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Images:      req.Images,
		Bestseller:  req.Bestseller,
	}
	for _, s := range req.Sizes {
		cmd.Sizes = append(cmd.Sizes, services.SizeStock{Size: s.Size, Stock: s.Stock})
	}
	return cmd
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"products": buildProductPayloads(products)})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"product": buildProductPayload(product)})
}

func (h *ProductHandlers) addProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}

	var cmd services.AddProductCommand
	if isMultipart(r) {
		files, release, err := parseMultipart(w, r, "images")
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		defer release()
		req, err := addProductFromForm(r)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		cmd = req.toCommand()
		cmd.Uploads = files
	} else {
		var req addProductRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		cmd = req.toCommand()
	}

	product, err := h.catalog.AddProduct(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Product added", map[string]any{"product": buildProductPayload(product)})
}

// addProductFromForm reads the text fields of a multipart product form. Sizes arrive as a
// JSON array in the "sizes" field.
func addProductFromForm(r *http.Request) (addProductRequest, error) {
	req := addProductRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		SubCategory: r.FormValue("subCategory"),
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return addProductRequest{}, &validation.Error{Message: "price must be a number", Fields: []string{"price"}}
	}
	req.Price = price
	if raw := strings.TrimSpace(r.FormValue("bestseller")); raw != "" {
		flag, err := strconv.ParseBool(raw)
		if err != nil {
			return addProductRequest{}, &validation.Error{Message: "bestseller must be true or false", Fields: []string{"bestseller"}}
		}
		req.Bestseller = flag
	}
	if raw := strings.TrimSpace(r.FormValue("sizes")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Sizes); err != nil {
			return addProductRequest{}, &validation.Error{Message: "sizes must be a JSON array of {size, stock}", Fields: []string{"sizes"}}
		}
	}
	if err := validation.Struct(req); err != nil {
		return addProductRequest{}, err
	}
	return req, nil
}

func (h *ProductHandlers) removeProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	if err := h.catalog.RemoveProduct(ctx, chi.URLParam(r, "productId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Product removed", nil)
}
