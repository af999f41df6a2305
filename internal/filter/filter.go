// Package filter maps catalog listing state to and from the URL query string.
//
// The query keys and their multi-value semantics are a public contract:
// listing URLs are shared and bookmarked, so they must keep parsing the same way.
package filter

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Query keys.
const (
	KeyCategory    = "category"
	KeySubcategory = "subcategory"
	KeyCollection  = "collection"
	KeyOnSale      = "onSale"
	KeySizes       = "sizes"
	KeyColors      = "colors"
	KeyPriceMin    = "priceMin"
	KeyPriceMax    = "priceMax"
	KeySort        = "sort"
	KeyPage        = "page"
	KeyLimit       = "limit"
)

type Sort string

const (
	SortPriceAsc    Sort = "price-asc"
	SortPriceDesc   Sort = "price-desc"
	SortNewest      Sort = "newest"
	SortNameAsc     Sort = "name-asc"
	SortNameDesc    Sort = "name-desc"
	SortBestselling Sort = "bestselling"
)

var sorts = []Sort{SortPriceAsc, SortPriceDesc, SortNewest, SortNameAsc, SortNameDesc, SortBestselling}

// Sorts lists every supported sort key.
func Sorts() []Sort { return slices.Clone(sorts) }

func (s Sort) Valid() bool { return slices.Contains(sorts, s) }

// Filters is the structured form of a listing query. Zero values mean
// "not set": an empty Category applies no category filter, a nil PriceMin no
// lower bound, Page 0 the first page and Limit 0 the engine default.
// Sizes and Colors are sets, kept sorted and free of duplicates.
type Filters struct {
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Collection  string   `json:"collection,omitempty"`
	OnSale      bool     `json:"onSale,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	PriceMin    *int64   `json:"priceMin,omitempty"`
	PriceMax    *int64   `json:"priceMax,omitempty"`
	Sort        Sort     `json:"sort,omitempty"`
	Page        int      `json:"page,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// EffectivePage is Page with the "absent means first" rule applied.
func (f Filters) EffectivePage() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// FromQuery parses a raw query string, with or without the leading '?'.
// Malformed pairs are skipped; the rest still apply.
func FromQuery(raw string) Filters {
	// ParseQuery keeps every pair it could decode alongside the error.
	v, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return FromValues(v)
}

// FromValues builds Filters from decoded query values. Missing keys stay
// absent and malformed numbers are dropped, never defaulted. Text values are
// kept verbatim; sizes and colors take one member per repeated key, so a
// comma inside a value is part of that value.
func FromValues(v url.Values) Filters {
	f := Filters{
		Category:    v.Get(KeyCategory),
		Subcategory: v.Get(KeySubcategory),
		Collection:  v.Get(KeyCollection),
		Sizes:       normalizeSet(v[KeySizes]),
		Colors:      normalizeSet(v[KeyColors]),
		PriceMin:    parsePrice(v.Get(KeyPriceMin)),
		PriceMax:    parsePrice(v.Get(KeyPriceMax)),
		Page:        parsePositive(v.Get(KeyPage)),
		Limit:       parsePositive(v.Get(KeyLimit)),
	}

	if b, err := strconv.ParseBool(v.Get(KeyOnSale)); err == nil {
		f.OnSale = b
	}
	if s := Sort(v.Get(KeySort)); s.Valid() {
		f.Sort = s
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		f.PriceMin, f.PriceMax = f.PriceMax, f.PriceMin
	}
	return f
}

// ToValues is the inverse of FromValues. Unset fields and page 1 are omitted.
func ToValues(f Filters) url.Values {
	v := url.Values{}
	setIf := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	setIf(KeyCategory, f.Category)
	setIf(KeySubcategory, f.Subcategory)
	setIf(KeyCollection, f.Collection)
	if f.OnSale {
		v.Set(KeyOnSale, "true")
	}
	for _, s := range normalizeSet(f.Sizes) {
		v.Add(KeySizes, s)
	}
	for _, c := range normalizeSet(f.Colors) {
		v.Add(KeyColors, c)
	}
	if f.PriceMin != nil {
		v.Set(KeyPriceMin, strconv.FormatInt(*f.PriceMin, 10))
	}
	if f.PriceMax != nil {
		v.Set(KeyPriceMax, strconv.FormatInt(*f.PriceMax, 10))
	}
	if f.Sort.Valid() {
		v.Set(KeySort, string(f.Sort))
	}
	if f.Page > 1 {
		v.Set(KeyPage, strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set(KeyLimit, strconv.Itoa(f.Limit))
	}
	return v
}

// ToQuery encodes f without a leading '?'. Keys are sorted, so equal
// Filters always produce the same string.
func ToQuery(f Filters) string {
	return ToValues(f).Encode()
}

// Equal reports whether a and b describe the same query.
func Equal(a, b Filters) bool {
	return a.Category == b.Category &&
		a.Subcategory == b.Subcategory &&
		a.Collection == b.Collection &&
		a.OnSale == b.OnSale &&
		slices.Equal(normalizeSet(a.Sizes), normalizeSet(b.Sizes)) &&
		slices.Equal(normalizeSet(a.Colors), normalizeSet(b.Colors)) &&
		equalPtr(a.PriceMin, b.PriceMin) &&
		equalPtr(a.PriceMax, b.PriceMax) &&
		sortOrEmpty(a.Sort) == sortOrEmpty(b.Sort) &&
		a.EffectivePage() == b.EffectivePage() &&
		max(a.Limit, 0) == max(b.Limit, 0)
}

func sortOrEmpty(s Sort) Sort {
	if s.Valid() {
		return s
	}
	return ""
}

func equalPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// normalizeSet sorts and dedupes values and drops empty members.
func normalizeSet(values []string) []string {
	out := slices.DeleteFunc(slices.Clone(values), func(s string) bool { return s == "" })
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func parsePrice(raw string) *int64 {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parsePositive(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
