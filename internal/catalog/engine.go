// Package catalog is the product query layer behind listing pages.
//
// Querier is the contract. Engine answers it from an in-memory product list
// and HTTPClient from a remote catalog service; callers cannot tell them apart.
package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
)

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

type Querier interface {
	// Query returns one page of products matching f.
	Query(ctx context.Context, f filter.Filters) (Page, error)
	Collection(ctx context.Context, slug string) (Collection, error)
	// Product finds a product by slug or id.
	Product(ctx context.Context, slugOrID string) (Product, error)
}

// Engine is a deterministic in-memory Querier. The product slice is never
// modified, so identical filters always give identical pages.
type Engine struct {
	products    []Product
	collections map[string]Collection
	bySlug      map[string]int
	byID        map[string]int
}

func NewEngine(products []Product, collections []Collection) *Engine {
	e := &Engine{
		products:    slices.Clone(products),
		collections: make(map[string]Collection, len(collections)),
		bySlug:      make(map[string]int, len(products)),
		byID:        make(map[string]int, len(products)),
	}
	for i, p := range e.products {
		e.bySlug[p.Slug] = i
		e.byID[p.ID] = i
	}
	for _, c := range collections {
		e.collections[c.Slug] = c
	}
	return e
}

func (e *Engine) Query(ctx context.Context, f filter.Filters) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	matched := make([]Product, 0, len(e.products))
	for _, p := range e.products {
		if matches(p, f) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, f.Sort)

	limit := clampLimit(f.Limit)
	page := f.EffectivePage()

	// Compare in pages before multiplying; a huge page would overflow start.
	data := []Product{}
	if page-1 < (len(matched)+limit-1)/limit {
		start := (page - 1) * limit
		data = matched[start:min(start+limit, len(matched))]
	}

	return Page{Data: data, Pagination: NewPagination(len(matched), page, limit)}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// matches applies the dimensions in order: collection/category/subcategory,
// sale, price, size, color. Dimensions AND together; values within a
// dimension OR together.
func matches(p Product, f filter.Filters) bool {
	if f.Collection != "" && !p.inCollection(f.Collection) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category.Slug, f.Category) {
		return false
	}
	if f.Subcategory != "" && !strings.EqualFold(p.Subcategory, f.Subcategory) {
		return false
	}
	if f.OnSale && !p.OnSale() {
		return false
	}
	if f.PriceMin != nil && p.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.Price > *f.PriceMax {
		return false
	}
	if len(f.Sizes) > 0 && !p.hasSize(f.Sizes) {
		return false
	}
	if len(f.Colors) > 0 && !p.hasColor(f.Colors) {
		return false
	}
	return true
}

// sortProducts sorts in place and stably. Unknown or empty keys keep
// catalog order.
func sortProducts(ps []Product, s filter.Sort) {
	var less func(a, b Product) int
	switch s {
	case filter.SortPriceAsc:
		less = func(a, b Product) int { return cmp.Compare(a.Price, b.Price) }
	case filter.SortPriceDesc:
		less = func(a, b Product) int { return cmp.Compare(b.Price, a.Price) }
	case filter.SortNewest:
		less = func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case filter.SortNameAsc:
		less = func(a, b Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case filter.SortNameDesc:
		less = func(a, b Product) int { return strings.Compare(strings.ToLower(b.Name), strings.ToLower(a.Name)) }
	case filter.SortBestselling:
		less = func(a, b Product) int {
			switch {
			case a.IsBestseller == b.IsBestseller:
				return 0
			case a.IsBestseller:
				return -1
			default:
				return 1
			}
		}
	default:
		return
	}
	slices.SortStableFunc(ps, less)
}

func (e *Engine) Collection(ctx context.Context, slug string) (Collection, error) {
	c, ok := e.collections[slug]
	if !ok {
		return Collection{}, ErrNotFound
	}
	c.ProductCount = 0
	for _, p := range e.products {
		if p.inCollection(slug) {
			c.ProductCount++
		}
	}
	return c, nil
}

func (e *Engine) Product(ctx context.Context, slugOrID string) (Product, error) {
	if i, ok := e.bySlug[slugOrID]; ok {
		return e.products[i], nil
	}
	if i, ok := e.byID[slugOrID]; ok {
		return e.products[i], nil
	}
	return Product{}, ErrNotFound
}
