package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
)

type productListResponse struct {
	catalog.Page
	Filters filter.Filters `json:"filters"`
	// Query is the canonical query string for the applied filters.
	Query string `json:"query"`
}

// ListProducts never fails on a catalog error: the client gets an empty page
// and the error is logged.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := filter.FromQuery(r.URL.RawQuery)
	page := catalog.QueryOrEmpty(r.Context(), h.catalog, f, *hlog.FromRequest(r))

	writeJSON(w, http.StatusOK, productListResponse{
		Page:    page,
		Filters: f,
		Query:   filter.ToQuery(f),
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Collection(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
