package catalog

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
)

var (
	fixtureCategories = []struct {
		Category
		subcategories []string
	}{
		{Category{ID: "cat-women", Name: "Women", Slug: "women"}, []string{"dresses", "tops", "knitwear", "trousers"}},
		{Category{ID: "cat-men", Name: "Men", Slug: "men"}, []string{"shirts", "outerwear", "trousers", "knitwear"}},
		{Category{ID: "cat-accessories", Name: "Accessories", Slug: "accessories"}, []string{"bags", "scarves", "belts"}},
		{Category{ID: "cat-home", Name: "Home", Slug: "home"}, []string{"bedding", "candles", "throws"}},
	}

	fixtureCollections = []Collection{
		{Slug: "new-arrivals", Name: "New Arrivals", Description: "The latest additions to the edit."},
		{Slug: "summer-edit", Name: "The Summer Edit", Description: "Linen, silk and light layers."},
		{Slug: "essentials", Name: "Essentials", Description: "Pieces worn on repeat."},
		{Slug: "festive", Name: "Festive", Description: "Occasion wear for the season."},
	}

	fixtureAdjectives = []string{"Silk", "Linen", "Cashmere", "Merino", "Organic Cotton", "Suede", "Velvet", "Crêpe"}
	fixtureNouns      = map[string][]string{
		"dresses":   {"Wrap Dress", "Slip Dress", "Midi Dress"},
		"tops":      {"Blouse", "Camisole", "Tunic"},
		"knitwear":  {"Crewneck", "Cardigan", "Turtleneck"},
		"trousers":  {"Wide-Leg Trousers", "Tapered Trousers", "Pleated Trousers"},
		"shirts":    {"Oxford Shirt", "Band-Collar Shirt", "Overshirt"},
		"outerwear": {"Overcoat", "Bomber", "Field Jacket"},
		"bags":      {"Tote", "Crossbody Bag", "Clutch"},
		"scarves":   {"Stole", "Square Scarf", "Muffler"},
		"belts":     {"Belt", "Braided Belt"},
		"bedding":   {"Duvet Cover", "Pillow Set"},
		"candles":   {"Candle", "Travel Candle"},
		"throws":    {"Throw", "Quilted Throw"},
	}

	fixtureSizes  = []string{"XS", "S", "M", "L", "XL"}
	fixtureColors = []struct{ name, hex string }{
		{"Black", "#000000"}, {"Ivory", "#FFFFF0"}, {"Navy", "#000080"},
		{"Camel", "#C19A6B"}, {"Olive", "#708238"}, {"Rose", "#E8B4B8"},
	}

	// fixtureEpoch anchors CreatedAt so output does not depend on the clock.
	fixtureEpoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// GenerateCatalog builds a deterministic mock catalog: the same seed and n
// always produce the same products in the same order.
func GenerateCatalog(seed uint64, n int) ([]Product, []Collection) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	products := make([]Product, 0, n)

	for i := 0; i < n; i++ {
		cat := fixtureCategories[r.IntN(len(fixtureCategories))]
		sub := cat.subcategories[r.IntN(len(cat.subcategories))]
		nouns := fixtureNouns[sub]
		name := fixtureAdjectives[r.IntN(len(fixtureAdjectives))] + " " + nouns[r.IntN(len(nouns))]

		id := fmt.Sprintf("prod-%04d", i+1)
		// Prices end in 99: 499 up to 24,999.
		price := int64(r.IntN(245)+5)*100 - 1

		p := Product{
			ID:          id,
			Slug:        fmt.Sprintf("%s-%04d", money.Slugify(name), i+1),
			Name:        name,
			Description: fmt.Sprintf("%s from our %s range.", name, cat.Name),
			Price:       price,
			Category:    cat.Category,
			Subcategory: sub,
			SKU:         fmt.Sprintf("LX-%s-%04d", cat.Slug[:3], i+1),
			IsNew:       r.IntN(5) == 0,
			IsFeatured:  r.IntN(8) == 0,
			CreatedAt:   fixtureEpoch.Add(-time.Duration(r.IntN(365*24)) * time.Hour),
		}
		p.IsBestseller = r.IntN(6) == 0

		if r.IntN(10) < 3 {
			compareAt := price + int64(r.IntN(20)+1)*100
			p.CompareAtPrice = &compareAt
		}
		if r.IntN(4) != 0 {
			rating := float64(30+r.IntN(21)) / 10
			reviews := r.IntN(400) + 1
			p.Rating = &rating
			p.ReviewCount = &reviews
		}

		for j := 0; j < 1+r.IntN(3); j++ {
			p.Images = append(p.Images, Image{
				URL:      fmt.Sprintf("https://images.luxe.example/%s/%d.jpg", id, j+1),
				Alt:      fmt.Sprintf("%s, view %d", name, j+1),
				Position: j,
			})
		}

		p.Variants = fixtureVariants(r, p, cat.Slug)
		for _, v := range p.Variants {
			p.Stock += v.Stock
		}

		for _, c := range fixtureCollections {
			if r.IntN(4) == 0 {
				p.Collections = append(p.Collections, c.Slug)
			}
		}
		if p.IsNew && !p.inCollection("new-arrivals") {
			p.Collections = append(p.Collections, "new-arrivals")
		}
		p.Tags = append(p.Tags, sub, cat.Slug)

		products = append(products, p)
	}

	return products, append([]Collection(nil), fixtureCollections...)
}

func fixtureVariants(r *rand.Rand, p Product, category string) []Variant {
	colorCount := 1 + r.IntN(3)
	start := r.IntN(len(fixtureColors))

	var sizes []string
	if category == "women" || category == "men" {
		lo := r.IntN(2)
		sizes = fixtureSizes[lo : lo+3+r.IntN(3-lo)]
	} else {
		sizes = []string{""}
	}

	var out []Variant
	for c := 0; c < colorCount; c++ {
		color := fixtureColors[(start+c)%len(fixtureColors)]
		for _, size := range sizes {
			v := Variant{
				ID:       fmt.Sprintf("%s-v%d", p.ID, len(out)+1),
				SKU:      fmt.Sprintf("%s-%d", p.SKU, len(out)+1),
				Stock:    r.IntN(16),
				Size:     size,
				Color:    color.name,
				ColorHex: color.hex,
			}
			out = append(out, v)
		}
	}
	return out
}
