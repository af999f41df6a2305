package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/wishlist"
)

type wishlistItem struct {
	wishlist.Item
	FormattedPrice  string `json:"formattedPrice"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
	AddedOn         string `json:"addedOn"`
}

type wishlistResponse struct {
	SessionID    string         `json:"sessionId"`
	Items        []wishlistItem `json:"items"`
	Count        int            `json:"count"`
	PersistError string         `json:"persistError,omitempty"`
}

func newWishlistResponse(c *session.Client) wishlistResponse {
	items := c.Wishlist.Items()
	resp := wishlistResponse{
		SessionID: c.ID,
		Items:     make([]wishlistItem, 0, len(items)),
		Count:     len(items),
	}
	for _, it := range items {
		view := wishlistItem{
			Item:           it,
			FormattedPrice: money.Format(it.Price),
			AddedOn:        money.FormatDate(it.AddedAt),
		}
		if it.CompareAtPrice != nil {
			view.DiscountPercent = money.DiscountPercentage(it.Price, *it.CompareAtPrice)
		}
		resp.Items = append(resp.Items, view)
	}
	if err := c.Wishlist.LastPersistError(); err != nil {
		resp.PersistError = err.Error()
	}
	return resp
}

type addWishlistItemRequest struct {
	ProductID string `json:"productId"`
}

type moveToCartRequest struct {
	VariantID string `json:"variantId"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWishlistResponse(c))
}

func (h *Handler) mutateWishlist(w http.ResponseWriter, r *http.Request, name string, op func(*session.Client) error) {
	c, _, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = op(c)
	h.observe("wishlist", name, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWishlistResponse(c))
}

func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req addWishlistItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, fmt.Errorf("%w: productId is required", cart.ErrValidation))
		return
	}
	h.mutateWishlist(w, r, "add", func(c *session.Client) error {
		p, err := h.catalog.Product(r.Context(), req.ProductID)
		if err != nil {
			return err
		}
		_, err = c.Wishlist.Add(r.Context(), p)
		return err
	})
}

func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	h.mutateWishlist(w, r, "remove", func(c *session.Client) error {
		_, err := c.Wishlist.Remove(r.Context(), chi.URLParam(r, "productId"))
		return err
	})
}

func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	h.mutateWishlist(w, r, "clear", func(c *session.Client) error {
		return c.Wishlist.Clear(r.Context())
	})
}

type moveToCartResponse struct {
	Cart     cartResponse     `json:"cart"`
	Wishlist wishlistResponse `json:"wishlist"`
}

// MoveToCart adds the product to the cart and drops it from the wishlist.
// When the cart refuses the item the wishlist keeps it.
func (h *Handler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	var req moveToCartRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	c, _, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	productID := chi.URLParam(r, "productId")
	if !c.Wishlist.Contains(productID) {
		writeError(w, r, fmt.Errorf("%w: %s", wishlist.ErrNotFound, productID))
		return
	}
	p, err := h.catalog.Product(r.Context(), productID)
	if err == nil {
		_, err = c.Wishlist.MoveToCart(r.Context(), p, resolveVariant(p, req.VariantID), quantity, c.Cart)
	}
	h.observe("wishlist", "move_to_cart", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, moveToCartResponse{
		Cart:     newCartResponse(c),
		Wishlist: newWishlistResponse(c),
	})
}
