package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/analytics"
	custommw "github.com/kflex/dashboard/internal/admin/httpserver/middleware"
	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/rbac"
	"github.com/kflex/dashboard/internal/admin/reviews"
	"github.com/kflex/dashboard/internal/platform/httpx"
	"github.com/kflex/dashboard/internal/platform/observability"
	"github.com/kflex/dashboard/internal/platform/requestctx"
)

const defaultRequestTimeout = 60 * time.Second

// OrderService is the order workflow exposed over HTTP.
type OrderService interface {
	Refresh(ctx context.Context) (orders.LoadReport, error)
	List(ctx context.Context, query orders.Query) (orders.ListResult, error)
	Get(ctx context.Context, id string) (orders.Order, error)
	UpdateStatus(ctx context.Context, id string, req orders.StatusUpdateRequest) (orders.StatusUpdateResult, error)
	Delete(ctx context.Context, id string, actor orders.Actor) error
	Export(ctx context.Context, criteria orders.Criteria, w io.Writer) (int, error)
	ExportToBucket(ctx context.Context, criteria orders.Criteria, actor orders.Actor) (orders.ExportResult, error)
}

// ProductService is the catalogue workflow exposed over HTTP.
type ProductService interface {
	List(ctx context.Context) ([]products.Product, error)
	Create(ctx context.Context, input products.Input) (products.Product, error)
	Update(ctx context.Context, id string, input products.Input) (products.Product, error)
	Delete(ctx context.Context, id string) error
}

// ReviewService is the review moderation workflow exposed over HTTP.
type ReviewService interface {
	List(ctx context.Context, query string) ([]reviews.Review, error)
	Delete(ctx context.Context, id string) error
}

// DashboardService computes the reporting summary.
type DashboardService interface {
	Dashboard(ctx context.Context) (analytics.Summary, error)
}

// CacheInvalidator drops cached record lists.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Services bundles the domain services mounted by the router.
type Services struct {
	Orders    OrderService
	Products  ProductService
	Reviews   ReviewService
	Dashboard DashboardService
	// Cache is optional.
	Cache CacheInvalidator
}

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address        string
	BasePath       string
	ProjectID      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Authenticator  custommw.Authenticator
	Clock          func() time.Time
}

// New constructs the HTTP server with the middleware stack and admin routes.
func New(cfg Config, services Services) (*http.Server, error) {
	handler, err := NewHandler(cfg, services)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewHandler builds the router without binding a listener.
func NewHandler(cfg Config, services Services) (http.Handler, error) {
	if services.Orders == nil || services.Products == nil || services.Reviews == nil || services.Dashboard == nil {
		return nil, errors.New("httpserver: orders, products, reviews and dashboard services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.TraceMiddleware(cfg.ProjectID))
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &handlers{services: services, clock: clock}
	router.Route(normalizeBasePath(cfg.BasePath), func(r chi.Router) {
		r.Use(custommw.Auth(cfg.Authenticator))

		r.With(custommw.RequireCapability(rbac.CapDashboardView)).Get("/dashboard", h.dashboard)
		r.With(custommw.RequireCapability(rbac.CapDashboardView)).Get("/analytics", h.analyticsReport)
		r.With(custommw.RequireCapability(rbac.CapDataRefresh)).Post("/refresh", h.refresh)

		r.Route("/orders", func(r chi.Router) {
			r.With(custommw.RequireCapability(rbac.CapOrdersList)).Get("/", h.listOrders)
			r.With(custommw.RequireCapability(rbac.CapOrdersExport)).Get("/export", h.exportOrders)
			r.With(custommw.RequireCapability(rbac.CapOrdersExport)).Post("/export", h.exportOrdersToBucket)
			r.With(custommw.RequireCapability(rbac.CapOrdersList)).Get("/{orderID}", h.getOrder)
			r.With(custommw.RequireCapability(rbac.CapOrderStatus)).Post("/{orderID}/status", h.updateOrderStatus)
			r.With(custommw.RequireCapability(rbac.CapOrderDelete)).Delete("/{orderID}", h.deleteOrder)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(custommw.RequireCapability(rbac.CapCatalogView)).Get("/", h.listProducts)
			r.With(custommw.RequireCapability(rbac.CapCatalogManage)).Post("/", h.createProduct)
			r.With(custommw.RequireCapability(rbac.CapCatalogManage)).Put("/{productID}", h.updateProduct)
			r.With(custommw.RequireCapability(rbac.CapCatalogManage)).Delete("/{productID}", h.deleteProduct)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.With(custommw.RequireCapability(rbac.CapReviewsView)).Get("/", h.listReviews)
			r.With(custommw.RequireCapability(rbac.CapReviewsDelete)).Delete("/{reviewID}", h.deleteReview)
		})
	})

	return router, nil
}

type handlers struct {
	services Services
	clock    func() time.Time
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func actorFromContext(ctx context.Context) orders.Actor {
	actor, _ := requestctx.ActorFrom(ctx)
	return orders.Actor{ID: actor.ID, Email: actor.Email}
}
