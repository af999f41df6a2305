// Package httpapi exposes the storefront state layer to UI clients.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Deps struct {
	Logger    zerolog.Logger
	Catalog   catalog.Querier
	Sessions  *session.Registry
	Publisher cart.Publisher
	Verifier  *identity.Verifier
	Metrics   *metrics.Metrics

	CORSAllowOrigins []string
}

type Handler struct {
	catalog   catalog.Querier
	sessions  *session.Registry
	publisher cart.Publisher
	metrics   *metrics.Metrics
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	h := &Handler{
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		publisher: d.Publisher,
		metrics:   d.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(correlationID)
	r.Use(requestLogger(d.Logger)...)
	r.Use(recoverer)
	r.Use(corsHandler(d.CORSAllowOrigins))
	r.Use(instrument(d.Metrics))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProduct)
		r.Get("/collections/{slug}", h.GetCollection)

		r.Group(func(r chi.Router) {
			r.Use(withIdentity(d.Verifier))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Patch("/items/{itemId}", h.UpdateCartItem)
				r.Delete("/items/{itemId}", h.RemoveCartItem)
				r.Post("/promo", h.ApplyPromo)
				r.Delete("/promo", h.RemovePromo)
				r.Post("/checkout", h.Checkout)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.GetWishlist)
				r.Delete("/", h.ClearWishlist)
				r.Post("/items", h.AddWishlistItem)
				r.Delete("/items/{productId}", h.RemoveWishlistItem)
				r.Post("/items/{productId}/move-to-cart", h.MoveToCart)
			})
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeSessions": h.sessions.Active(),
	})
}
