package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// sessionMaxAge keeps the anonymous cart alive for two weeks.
const sessionMaxAge = 14 * 24 * 60 * 60

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SessionSecret      string
	JWTSecret          string
	AdminAPIKey        string
}

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Admin    *AdminHandler
}

func NewSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// NewRouter wires every route behind the shared middleware stack and wraps
// the result for tracing.
func NewRouter(cfg RouterConfig, store sessions.Store, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
		r.Use(SessionMiddleware(store))
		r.Use(AuthMiddleware([]byte(cfg.JWTSecret)))

		r.Get("/home", h.Products.Home)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{slug}", h.Products.Get)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Products.Categories)
			r.Get("/{slug}", h.Products.Category)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/add", h.Cart.AddItem)
			r.Post("/update", h.Cart.UpdateItem)
			r.Get("/remove/{itemID}", h.Cart.RemoveItem)
		})

		r.Get("/checkout", h.Checkout.Summary)
		r.Post("/checkout", h.Checkout.PlaceOrder)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{orderID}/success", h.Orders.OrderSuccess)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminMiddleware(cfg.AdminAPIKey))

		r.Post("/categories", h.Admin.CreateCategory)
		r.Delete("/categories/{slug}", h.Admin.DeleteCategory)
		r.Post("/products", h.Admin.CreateProduct)
		r.Patch("/products/{slug}", h.Admin.UpdateProduct)
		r.Post("/products/{slug}/image", h.Admin.UploadImage)
		r.Patch("/orders/{orderID}/status", h.Admin.UpdateOrderStatus)
	})

	return otelhttp.NewHandler(r, "storefront")
}
