// Package money holds the storefront's stateless formatting helpers.
// Prices are whole rupee amounts; there is no minor unit.
package money

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	CurrencySymbol = "₹"
	CurrencyCode   = "INR"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Format renders an amount with the currency symbol and locale grouping, e.g. ₹2,499.
func Format(amount int64) string {
	if amount < 0 {
		return "-" + CurrencySymbol + printer.Sprintf("%d", -amount)
	}
	return CurrencySymbol + printer.Sprintf("%d", amount)
}

// DiscountPercentage returns the whole-percent saving of price against
// compareAtPrice. A compare-at price that is not above price is no discount.
func DiscountPercentage(price, compareAtPrice int64) int {
	if compareAtPrice <= 0 || compareAtPrice <= price {
		return 0
	}
	pct := float64(compareAtPrice-price) / float64(compareAtPrice) * 100
	return int(math.Round(pct))
}

// FormatDate renders t as "14 October 2026".
func FormatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases s, folds diacritics and joins alphanumeric runs with '-'.
func Slugify(s string) string {
	folded, _, err := transform.String(slugFold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
