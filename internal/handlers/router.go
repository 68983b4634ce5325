package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

// Group names a mount point. Storefront groups live under /api; webhooks and internal routes
// are mounted at the root so gateways and schedulers never pass the storefront middleware.
type Group string

const (
	GroupProduct  Group = "product"
	GroupUser     Group = "user"
	GroupCart     Group = "cart"
	GroupOrder    Group = "order"
	GroupDiscount Group = "discount"
	GroupReturn   Group = "return-refund"
	GroupWebhook  Group = "webhooks"
	GroupInternal Group = "internal"
)

var storefrontGroups = []Group{GroupProduct, GroupUser, GroupCart, GroupOrder, GroupDiscount, GroupReturn}

const (
	apiPrefix         = "/api"
	requestTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

type mount struct {
	routes      RouteRegistrar
	middlewares []func(http.Handler) http.Handler
}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	mounts      map[Group]mount
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// NewRouter builds the chi router. Groups without routes answer 501 so a partially wired
// deployment fails loudly instead of 404ing.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{middleware.RequestID, middleware.RealIP, middleware.Timeout(requestTimeout)},
		mounts:      make(map[Group]mount),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	use(r, cfg.middlewares)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method "+req.Method+" not allowed on "+req.URL.Path, http.StatusMethodNotAllowed))
	})
	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, group := range storefrontGroups {
			cfg.mount(api, group)
		}
	})
	cfg.mount(r, GroupWebhook)
	cfg.mount(r, GroupInternal)
	return r
}

func (cfg routerConfig) mount(parent chi.Router, group Group) {
	m := cfg.mounts[group]
	parent.Route("/"+string(group), func(sub chi.Router) {
		use(sub, m.middlewares)
		if m.routes == nil {
			notImplemented(sub, group)
			return
		}
		m.routes(sub)
	})
}

func use(r chi.Router, middlewares []func(http.Handler) http.Handler) {
	for _, mw := range middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
}

// WithRoutes mounts reg at group. Middlewares apply to that group only.
func WithRoutes(group Group, reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		m := cfg.mounts[group]
		m.routes = reg
		m.middlewares = append(m.middlewares, mw...)
		cfg.mounts[group] = m
	}
}

// WithGroupMiddlewares adds middleware to group without changing its routes.
func WithGroupMiddlewares(group Group, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		m := cfg.mounts[group]
		m.middlewares = append(m.middlewares, mw...)
		cfg.mounts[group] = m
	}
}

// WithMiddlewares appends global middleware.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithCORS allows browser calls from origins. An empty list leaves CORS disabled.
func WithCORS(origins []string) Option {
	return func(cfg *routerConfig) {
		if len(origins) == 0 {
			return
		}
		cfg.middlewares = append(cfg.middlewares, cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			// "token" is the storefront's session header.
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "token"},
			ExposedHeaders: []string{"Idempotent-Replayed", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

func notImplemented(r chi.Router, group Group) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", string(group)+" routes not implemented", http.StatusNotImplemented))
	}
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}
