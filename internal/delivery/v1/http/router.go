package http

import (
	"context"
	"net/http"

	_ "github.com/DRSN-tech/checkout-backend/docs" // Импорт описания API
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/DRSN-tech/checkout-backend/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker проверяет доступность зависимостей для /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Products usecase.ProductUC
	Carts    usecase.CartUC
	Checkout usecase.CheckoutUC
	Orders   usecase.OrderUC
	Verifier TokenVerifier
	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	Health   HealthChecker
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(deps Deps) {
	r.router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, routeAttribute)
	if deps.Metrics != nil {
		r.router.Use(deps.Metrics.Middleware)
	}

	r.router.Get("/healthz", r.healthz(deps.Health))
	if deps.Gatherer != nil {
		r.router.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerProductRoutes(v1, NewProductHandler(deps.Products, r.logger), deps.Verifier, r.logger)

		v1.Group(func(user chi.Router) {
			user.Use(Authenticate(deps.Verifier, r.logger))
			registerCartRoutes(user, NewCartHandler(deps.Carts, deps.Checkout, r.logger))
			registerOrderRoutes(user, NewOrderHandler(deps.Orders, r.logger))
		})
	})
}

// Handler возвращает корневой обработчик с трассировкой входящих запросов.
func (r *Router) Handler() http.Handler {
	return otelhttp.NewHandler(r.router, "http.server")
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler, verifier TokenVerifier, log logger.Logger) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Get("/{id}", prHandler.getProduct)

		pr.Group(func(admin chi.Router) {
			admin.Use(Authenticate(verifier, log), RequireAdmin(log))
			admin.Post("/", prHandler.createProduct)
			admin.Patch("/{id}/price", prHandler.updatePrice)
		})
	})
}

func registerCartRoutes(router chi.Router, cartHandler *CartHandler) {
	router.Post("/cart/items", cartHandler.addItem)
	router.Get("/cart", cartHandler.getCart)
	router.Post("/checkout", cartHandler.checkout)
}

func registerOrderRoutes(router chi.Router, orderHandler *OrderHandler) {
	router.Route("/orders", func(or chi.Router) {
		or.Get("/", orderHandler.listOrders)
		or.Get("/{id}", orderHandler.getOrder)
		or.Get("/{id}/receipt", orderHandler.getReceipt)
	})
}

func (r *Router) healthz(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health.Ping(req.Context()); err != nil {
				r.logger.Warnf("health check failed: %v", err)
				WriteSuccess(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
