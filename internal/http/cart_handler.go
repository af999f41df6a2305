package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const maxBodyBytes = 1 << 20

type amounts struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

type cartResponse struct {
	cart.Cart
	SessionID string  `json:"sessionId"`
	Formatted amounts `json:"formatted"`
	// FreeShippingRemaining is how much more the client has to add to get free
	// shipping. Zero when it already applies or the cart is empty.
	FreeShippingRemaining int64  `json:"freeShippingRemaining"`
	PersistError          string `json:"persistError,omitempty"`
}

func newCartResponse(c *session.Client) cartResponse {
	view := c.Cart.Cart()
	pricing := c.Cart.Pricing()

	resp := cartResponse{
		Cart:      view,
		SessionID: c.ID,
		Formatted: amounts{
			Subtotal: money.Format(view.Subtotal),
			Shipping: money.Format(view.Shipping),
			Tax:      money.Format(view.Tax),
			Discount: money.Format(view.Discount),
			Total:    money.Format(view.Total),
		},
	}
	if len(view.Items) > 0 && view.Subtotal < pricing.FreeShippingThreshold {
		resp.FreeShippingRemaining = pricing.FreeShippingThreshold - view.Subtotal
	}
	if err := c.Cart.LastPersistError(); err != nil {
		resp.PersistError = err.Error()
	}
	return resp
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type promoRequest struct {
	Code string `json:"code"`
}

type checkoutResponse struct {
	CartID         string    `json:"cartId"`
	UserID         string    `json:"userId"`
	ItemCount      int       `json:"itemCount"`
	Total          int64     `json:"total"`
	FormattedTotal string    `json:"formattedTotal"`
	CheckedOutAt   time.Time `json:"checkedOutAt"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) client(r *http.Request) (*session.Client, identity.Session, error) {
	sess, _ := identity.FromContext(r.Context())
	c, err := h.sessions.Open(r.Context(), sess.ID)
	return c, sess, err
}

func (h *Handler) observe(storeName, op string, err error) {
	h.metrics.CartMutations.WithLabelValues(storeName, op, metrics.Result(err)).Inc()
}

// resolveVariant picks the requested variant, or the only one when the
// product has a single variant and none was named.
func resolveVariant(p catalog.Product, variantID string) catalog.Variant {
	if variantID == "" && len(p.Variants) == 1 {
		return p.Variants[0]
	}
	return catalog.Variant{ID: variantID}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// mutateCart runs op against the session cart and answers with the new cart.
func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, name string, op func(*session.Client) error) {
	c, _, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = op(c)
	h.observe("cart", name, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, fmt.Errorf("%w: productId is required", cart.ErrValidation))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	h.mutateCart(w, r, "add_item", func(c *session.Client) error {
		p, err := h.catalog.Product(r.Context(), req.ProductID)
		if err != nil {
			return err
		}
		_, err = c.Cart.AddItem(r.Context(), p, resolveVariant(p, req.VariantID), quantity)
		return err
	})
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.mutateCart(w, r, "update_quantity", func(c *session.Client) error {
		_, err := c.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "itemId"), req.Quantity)
		return err
	})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "remove_item", func(c *session.Client) error {
		_, err := c.Cart.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
		return err
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "clear", func(c *session.Client) error {
		_, err := c.Cart.Clear(r.Context())
		return err
	})
}

func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.mutateCart(w, r, "apply_promo", func(c *session.Client) error {
		_, err := c.Cart.ApplyPromo(r.Context(), req.Code)
		return err
	})
}

func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "remove_promo", func(c *session.Client) error {
		_, err := c.Cart.RemovePromo(r.Context())
		return err
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, sess, err := h.client(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	co, err := c.Cart.Checkout(r.Context(), sess, h.publisher)
	h.metrics.Checkouts.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		CartID:         co.CartID,
		UserID:         co.UserID,
		ItemCount:      co.Cart.ItemCount,
		Total:          co.Cart.Total,
		FormattedTotal: money.Format(co.Cart.Total),
		CheckedOutAt:   co.CheckedOutAt,
	})
}
