package cart

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not found")
)

// StockError reports a quantity the variant cannot cover. It matches
// ErrInsufficientStock with errors.Is.
type StockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: variant %s has %d, requested %d", ErrInsufficientStock, e.VariantID, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// Item is one cart line. UnitPrice and Stock are captured when the line is
// created; Stock is refreshed whenever the same variant is added again.
type Item struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	ProductSlug string `json:"productSlug"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Stock       int    `json:"stock"`
}

func (i Item) LineTotal() int64 { return i.UnitPrice * int64(i.Quantity) }

// Snapshot is the persisted cart: only inputs, never totals.
type Snapshot struct {
	ID        string `json:"id,omitempty"`
	Items     []Item `json:"items"`
	PromoCode string `json:"promoCode,omitempty"`
}

// Cart is the derived view handed to readers.
type Cart struct {
	ID        string `json:"id,omitempty"`
	Items     []Item `json:"items"`
	ItemCount int    `json:"itemCount"`
	Subtotal  int64  `json:"subtotal"`
	Shipping  int64  `json:"shipping"`
	Tax       int64  `json:"tax"`
	Discount  int64  `json:"discount"`
	Total     int64  `json:"total"`
	PromoCode string `json:"promoCode,omitempty"`
}

// Checkout is what a successful checkout hands to the publisher.
type Checkout struct {
	CartID       string
	SessionID    string
	UserID       string
	Cart         Cart
	CheckedOutAt time.Time
}
