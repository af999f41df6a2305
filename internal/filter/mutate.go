package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

var ErrUnknownKey = errors.New("unknown filter key")

// ApplyFilterChange adds or removes one value of a multi-value filter
// (sizes or colors). Other keys are left alone and the page goes back to 1.
// An unknown key returns current unchanged.
func ApplyFilterChange(current Filters, key, value string, add bool) Filters {
	next := current
	switch key {
	case KeySizes:
		next.Sizes = toggle(current.Sizes, value, add)
	case KeyColors:
		next.Colors = toggle(current.Colors, value, add)
	default:
		return current
	}
	next.Page = 1
	return next
}

// Set changes a single-valued filter. An empty value clears it.
func Set(current Filters, key, value string) (Filters, error) {
	next := current
	switch key {
	case KeyCategory:
		next.Category = value
	case KeySubcategory:
		next.Subcategory = value
	case KeyCollection:
		next.Collection = value
	case KeySort:
		s := Sort(value)
		if value != "" && !s.Valid() {
			return current, fmt.Errorf("sort %q: %w", value, ErrUnknownKey)
		}
		next.Sort = s
	case KeyOnSale:
		if value == "" {
			next.OnSale = false
			break
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return current, fmt.Errorf("onSale %q: %w", value, err)
		}
		next.OnSale = b
	default:
		return current, fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	next.Page = 1
	return next, nil
}

// ApplyPriceRange sets both bounds. Negative bounds clamp to 0 and an
// inverted range is swapped, so the filter is never silently dropped.
func ApplyPriceRange(current Filters, lo, hi *int64) Filters {
	next := current
	next.PriceMin = clampPrice(lo)
	next.PriceMax = clampPrice(hi)
	if next.PriceMin != nil && next.PriceMax != nil && *next.PriceMin > *next.PriceMax {
		next.PriceMin, next.PriceMax = next.PriceMax, next.PriceMin
	}
	next.Page = 1
	return next
}

// WithPage moves to another page without touching the filters.
func WithPage(current Filters, page int) Filters {
	next := current
	next.Page = max(page, 1)
	return next
}

// ClearAll drops every filter. Only the page size survives.
func ClearAll(current Filters) Filters {
	return Filters{Page: 1, Limit: current.Limit}
}

func toggle(set []string, value string, add bool) []string {
	if value == "" {
		return normalizeSet(set)
	}
	out := slices.DeleteFunc(slices.Clone(set), func(s string) bool { return s == value })
	if add {
		out = append(out, value)
	}
	return normalizeSet(out)
}

func clampPrice(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := max(*p, 0)
	return &v
}
