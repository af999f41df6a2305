package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrQuery wraps any failure to reach or decode the catalog backend.
	ErrQuery = errors.New("catalog query failed")
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Image struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

// Variant is one purchasable size/color of a product. A zero Price means
// the product price applies.
type Variant struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Price    int64  `json:"price,omitempty"`
	Stock    int    `json:"stock"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	ColorHex string `json:"colorHex,omitempty"`
}

type Product struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Price          int64     `json:"price"`
	CompareAtPrice *int64    `json:"compareAtPrice,omitempty"`
	Category       Category  `json:"category"`
	Subcategory    string    `json:"subcategory,omitempty"`
	Collections    []string  `json:"collections,omitempty"`
	Images         []Image   `json:"images"`
	Variants       []Variant `json:"variants"`
	Tags           []string  `json:"tags,omitempty"`
	IsNew          bool      `json:"isNew"`
	IsFeatured     bool      `json:"isFeatured"`
	IsBestseller   bool      `json:"isBestseller"`
	Stock          int       `json:"stock"`
	SKU            string    `json:"sku"`
	Rating         *float64  `json:"rating,omitempty"`
	ReviewCount    *int      `json:"reviewCount,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OnSale reports a real discount: a compare-at price above the price.
func (p Product) OnSale() bool {
	return p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price
}

// Variant looks up a variant belonging to p.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// UnitPrice is the price charged for v.
func (p Product) UnitPrice(v Variant) int64 {
	if v.Price > 0 {
		return v.Price
	}
	return p.Price
}

// PrimaryImage returns the URL of the lowest-positioned image.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	best := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Position < best.Position {
			best = img
		}
	}
	return best.URL
}

func (p Product) hasSize(sizes []string) bool {
	for _, v := range p.Variants {
		for _, s := range sizes {
			if v.Size != "" && strings.EqualFold(v.Size, s) {
				return true
			}
		}
	}
	return false
}

func (p Product) hasColor(colors []string) bool {
	for _, v := range p.Variants {
		for _, c := range colors {
			if v.Color != "" && strings.EqualFold(v.Color, c) {
				return true
			}
		}
	}
	return false
}

func (p Product) inCollection(slug string) bool {
	for _, c := range p.Collections {
		if c == slug {
			return true
		}
	}
	return false
}

type Collection struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ProductCount int    `json:"productCount"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives every field from total, page and limit.
func NewPagination(total, page, limit int) Pagination {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Page is one slice of a listing, the shape of GET products.
type Page struct {
	Data       []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
