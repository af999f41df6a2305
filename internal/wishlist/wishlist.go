// Package wishlist keeps the set of products a client saved for later.
// Entries are snapshots taken when the product was added; they do not track
// later catalog price changes.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/store"
)

var ErrNotFound = errors.New("not in wishlist")

// Item is keyed by product id, so a product appears at most once.
type Item struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Image          string    `json:"image,omitempty"`
	Price          int64     `json:"price"`
	CompareAtPrice *int64    `json:"compareAtPrice,omitempty"`
	AddedAt        time.Time `json:"addedAt"`
}

type Snapshot struct {
	Items []Item `json:"items"`

	index map[string]int
}

// reindex rebuilds the membership index and drops duplicate ids a stored
// snapshot might contain, keeping the first.
func reindex(s Snapshot) Snapshot {
	idx := make(map[string]int, len(s.Items))
	items := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if _, dup := idx[it.ID]; dup || it.ID == "" {
			continue
		}
		idx[it.ID] = len(items)
		items = append(items, it)
	}
	return Snapshot{Items: items, index: idx}
}

// CartAdder is the part of the cart MoveToCart needs.
type CartAdder interface {
	AddItem(ctx context.Context, product catalog.Product, variant catalog.Variant, quantity int) (cart.Cart, error)
}

type Store struct {
	state *store.Store[Snapshot]
	now   func() time.Time
}

func NewStore(adapter store.Adapter[Snapshot], logger zerolog.Logger) *Store {
	return &Store{
		state: store.New("wishlist", Snapshot{}, adapter,
			store.WithNormalize(reindex),
			store.WithLogger[Snapshot](logger),
		),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Hydrate(ctx context.Context) error { return s.state.Hydrate(ctx) }

// Add saves product. Adding a product already present changes nothing.
func (s *Store) Add(ctx context.Context, product catalog.Product) ([]Item, error) {
	if product.ID == "" {
		return s.Items(), fmt.Errorf("wishlist add: product id is required")
	}
	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		if _, ok := cur.index[product.ID]; ok {
			return cur, store.ErrNoChange
		}
		cur.Items = append(slices.Clone(cur.Items), Item{
			ID:             product.ID,
			Slug:           product.Slug,
			Name:           product.Name,
			Image:          product.PrimaryImage(),
			Price:          product.Price,
			CompareAtPrice: product.CompareAtPrice,
			AddedAt:        s.now(),
		})
		return cur, nil
	})
	return slices.Clone(next.Items), err
}

// Remove deletes productID if present.
func (s *Store) Remove(ctx context.Context, productID string) ([]Item, error) {
	next, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		i, ok := cur.index[productID]
		if !ok {
			return cur, store.ErrNoChange
		}
		cur.Items = slices.Delete(slices.Clone(cur.Items), i, i+1)
		return cur, nil
	})
	return slices.Clone(next.Items), err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.state.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		if len(cur.Items) == 0 {
			return cur, store.ErrNoChange
		}
		return Snapshot{Items: []Item{}}, nil
	})
	return err
}

func (s *Store) Contains(productID string) bool {
	_, ok := s.state.Get().index[productID]
	return ok
}

// Items returns a copy of the saved products in the order they were added.
func (s *Store) Items() []Item { return slices.Clone(s.state.Get().Items) }

func (s *Store) Count() int { return len(s.state.Get().Items) }

func (s *Store) Loading() bool { return s.state.Loading() }

func (s *Store) LastPersistError() error { return s.state.LastPersistError() }

func (s *Store) Subscribe(fn func(items []Item, persistErr error)) (cancel func()) {
	return s.state.Subscribe(func(ch store.Change[Snapshot]) { fn(slices.Clone(ch.State.Items), ch.Err) })
}

func (s *Store) Close() { s.state.Close() }

// MoveToCart adds the product to c and only then drops it from the
// wishlist. If the cart rejects it the wishlist is left untouched.
func (s *Store) MoveToCart(ctx context.Context, product catalog.Product, variant catalog.Variant, quantity int, c CartAdder) (cart.Cart, error) {
	if !s.Contains(product.ID) {
		return cart.Cart{}, fmt.Errorf("%w: %s", ErrNotFound, product.ID)
	}
	updated, err := c.AddItem(ctx, product, variant, quantity)
	if err != nil {
		return updated, err
	}
	if _, err := s.Remove(ctx, product.ID); err != nil {
		return updated, err
	}
	return updated, nil
}
