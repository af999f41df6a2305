// Package cart owns a client's shopping cart. Every mutation goes through
// Store, is applied against the latest state and persisted before it returns;
// totals are always derived from the lines, never stored.
package cart

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/store"
)

// Publisher announces a checked-out cart downstream.
type Publisher interface {
	PublishCartCheckedOut(ctx context.Context, c Checkout) error
}

type Store struct {
	state   *store.Store[Snapshot]
	pricing Pricing
	now     func() time.Time
}

func NewStore(adapter store.Adapter[Snapshot], pricing Pricing, logger zerolog.Logger) *Store {
	return &Store{
		state: store.New("cart", Snapshot{}, adapter,
			store.WithNormalize(normalize),
			store.WithLogger[Snapshot](logger),
		),
		pricing: pricing,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// normalize drops lines a corrupt or hand-edited snapshot may carry.
func normalize(s Snapshot) Snapshot {
	if s.Items == nil {
		s.Items = []Item{}
		return s
	}
	if slices.ContainsFunc(s.Items, func(it Item) bool { return it.Quantity < 1 || it.ID == "" }) {
		s.Items = slices.DeleteFunc(slices.Clone(s.Items), func(it Item) bool { return it.Quantity < 1 || it.ID == "" })
	}
	return s
}

// Hydrate loads the persisted cart. On failure the cart starts empty and the
// *store.PersistenceError is returned for logging.
func (s *Store) Hydrate(ctx context.Context) error { return s.state.Hydrate(ctx) }

func (s *Store) Cart() Cart { return s.pricing.Price(s.state.Get()) }

func (s *Store) Pricing() Pricing { return s.pricing }

// Loading reports whether a mutation is in flight.
func (s *Store) Loading() bool { return s.state.Loading() }

func (s *Store) LastPersistError() error { return s.state.LastPersistError() }

// Subscribe calls fn with the new cart after every applied mutation. persistErr
// is non-nil when the change could not be saved.
func (s *Store) Subscribe(fn func(c Cart, persistErr error)) (cancel func()) {
	return s.state.Subscribe(func(ch store.Change[Snapshot]) {
		fn(s.pricing.Price(ch.State), ch.Err)
	})
}

func (s *Store) Close() { s.state.Close() }

// AddItem adds quantity of variant to the cart, merging into an existing line
// for the same product and variant.
func (s *Store) AddItem(ctx context.Context, product catalog.Product, variant catalog.Variant, quantity int) (Cart, error) {
	if quantity < 1 {
		return s.Cart(), fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	v, ok := product.Variant(variant.ID)
	if !ok {
		return s.Cart(), fmt.Errorf("%w: variant %q does not belong to product %q", ErrValidation, variant.ID, product.ID)
	}

	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		idx := slices.IndexFunc(cur.Items, func(it Item) bool {
			return it.ProductID == product.ID && it.VariantID == v.ID
		})

		requested := quantity
		if idx >= 0 {
			requested += cur.Items[idx].Quantity
		}
		if requested > v.Stock {
			return cur, &StockError{VariantID: v.ID, Requested: requested, Available: v.Stock}
		}

		items := slices.Clone(cur.Items)
		if idx >= 0 {
			items[idx].Quantity = requested
			items[idx].Stock = v.Stock
		} else {
			items = append(items, Item{
				ID:          uuid.NewString(),
				ProductID:   product.ID,
				VariantID:   v.ID,
				ProductSlug: product.Slug,
				Name:        product.Name,
				Image:       product.PrimaryImage(),
				Size:        v.Size,
				Color:       v.Color,
				Quantity:    quantity,
				UnitPrice:   product.UnitPrice(v),
				Stock:       v.Stock,
			})
		}

		cur.Items = items
		if cur.ID == "" {
			cur.ID = uuid.NewString()
		}
		return cur, nil
	})
	return s.pricing.Price(next), err
}

// UpdateQuantity sets a line's quantity. Use RemoveItem to delete a line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) (Cart, error) {
	if quantity < 1 {
		return s.Cart(), fmt.Errorf("%w: quantity must be at least 1, use remove instead", ErrValidation)
	}

	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		idx := indexOf(cur.Items, itemID)
		if idx < 0 {
			return cur, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		if quantity > cur.Items[idx].Stock {
			return cur, &StockError{VariantID: cur.Items[idx].VariantID, Requested: quantity, Available: cur.Items[idx].Stock}
		}
		if cur.Items[idx].Quantity == quantity {
			return cur, store.ErrNoChange
		}

		items := slices.Clone(cur.Items)
		items[idx].Quantity = quantity
		cur.Items = items
		return cur, nil
	})
	return s.pricing.Price(next), err
}

func (s *Store) RemoveItem(ctx context.Context, itemID string) (Cart, error) {
	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		idx := indexOf(cur.Items, itemID)
		if idx < 0 {
			return cur, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		cur.Items = slices.Delete(slices.Clone(cur.Items), idx, idx+1)
		return cur, nil
	})
	return s.pricing.Price(next), err
}

// Clear empties the cart and drops any promo code.
func (s *Store) Clear(ctx context.Context) (Cart, error) {
	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		return Snapshot{Items: []Item{}}, nil
	})
	return s.pricing.Price(next), err
}

func (s *Store) ApplyPromo(ctx context.Context, code string) (Cart, error) {
	promo, ok := s.pricing.Promo(code)
	if !ok {
		return s.Cart(), fmt.Errorf("%w: unknown promo code %q", ErrValidation, code)
	}

	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		if subtotal := s.pricing.Price(cur).Subtotal; subtotal < promo.MinSubtotal {
			return cur, fmt.Errorf("%w: %s needs a subtotal of at least %d", ErrValidation, promo.Code, promo.MinSubtotal)
		}
		if cur.PromoCode == promo.Code {
			return cur, store.ErrNoChange
		}
		cur.PromoCode = promo.Code
		return cur, nil
	})
	return s.pricing.Price(next), err
}

func (s *Store) RemovePromo(ctx context.Context) (Cart, error) {
	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		if cur.PromoCode == "" {
			return cur, store.ErrNoChange
		}
		cur.PromoCode = ""
		return cur, nil
	})
	return s.pricing.Price(next), err
}

// Checkout publishes the cart for order placement and empties it. The cart
// is only cleared once the publisher accepted it.
func (s *Store) Checkout(ctx context.Context, sess identity.Session, pub Publisher) (Checkout, error) {
	if !sess.Authenticated() {
		return Checkout{}, fmt.Errorf("checkout: %w", identity.ErrUnauthenticated)
	}

	var out Checkout
	_, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		if len(cur.Items) == 0 {
			return cur, fmt.Errorf("%w: cart is empty", ErrValidation)
		}

		co := Checkout{
			CartID:       cur.ID,
			SessionID:    sess.ID,
			UserID:       sess.UserID,
			Cart:         s.pricing.Price(cur),
			CheckedOutAt: s.now(),
		}
		if co.CartID == "" {
			co.CartID = uuid.NewString()
			co.Cart.ID = co.CartID
		}
		if err := pub.PublishCartCheckedOut(ctx, co); err != nil {
			return cur, fmt.Errorf("publish cart checked out: %w", err)
		}

		out = co
		return Snapshot{Items: []Item{}}, nil
	})
	if err != nil {
		return Checkout{}, err
	}
	return out, nil
}

func indexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}
