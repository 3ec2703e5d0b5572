package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig holds the HTTP-facing settings of the BFF.
type RouterConfig struct {
	Cookie    CookieConfig
	CORS      middleware.CORSConfig
	RateLimit middleware.RateLimitConfig
	// PprofCIDRs may reach /debug/pprof. Empty disables profiling.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all storefront routes registered. The
// rate limiter's eviction loop stops when ctx is cancelled.
func NewRouter(
	ctx context.Context,
	cfg RouterConfig,
	registry *storefront.Registry,
	cat *catalog.Catalog,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimit, logger))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewHandler(cat, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SessionCookie(cfg.Cookie, registry, logger))

		r.Get("/session", h.GetSession)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.SignIn)
			r.Post("/signup", h.SignUp)
			r.Put("/password", h.ResetPassword)
			r.Post("/logout", h.Logout)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{productId}", h.UpdateCartItem)
			r.Delete("/items/{productId}", h.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/items", h.AddWishlistItem)
			r.Post("/items/{productId}/toggle", h.ToggleWishlistItem)
			r.Delete("/items/{productId}", h.RemoveWishlistItem)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", h.ListProducts)
			r.Post("/products/next", h.NextProducts)
			r.Get("/products/{id}", h.GetProduct)
			r.Get("/categories", h.ListCategories)
			r.Get("/categories/{id}/subcategories", h.ListSubcategories)
			r.Get("/brands", h.ListBrands)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/addresses/new", h.NewAddress)
			r.Post("/addresses", h.CreateAddress)
			r.Put("/addresses/{id}", h.UpdateAddress)
			r.Delete("/addresses/{id}", h.DeleteAddress)
			r.Put("/selection", h.SelectAddress)
			r.Post("/orders/cash", h.PlaceCashOrder)
			r.Post("/orders/online", h.StartOnlinePayment)
			r.Get("/confirmation", h.GetConfirmation)
		})
	})

	return r
}
