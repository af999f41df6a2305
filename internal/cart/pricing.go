package cart

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultFreeShippingThreshold int64 = 2999
	DefaultShippingFee           int64 = 199
)

// Promo is either a percentage or a flat amount off the subtotal, active
// once the subtotal reaches MinSubtotal.
type Promo struct {
	Code        string `json:"code"`
	PercentOff  int64  `json:"percentOff,omitempty"`
	AmountOff   int64  `json:"amountOff,omitempty"`
	MinSubtotal int64  `json:"minSubtotal,omitempty"`
}

type Pricing struct {
	FreeShippingThreshold int64
	ShippingFee           int64
	// TaxRate is added on top of the subtotal. Catalog prices already
	// include GST, so it defaults to zero.
	TaxRate decimal.Decimal
	Promos  map[string]Promo
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		ShippingFee:           DefaultShippingFee,
		TaxRate:               decimal.Zero,
		Promos: map[string]Promo{
			"WELCOME10": {Code: "WELCOME10", PercentOff: 10},
			"LUXE500":   {Code: "LUXE500", AmountOff: 500, MinSubtotal: 4999},
		},
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (p Pricing) Promo(code string) (Promo, bool) {
	promo, ok := p.Promos[normalizeCode(code)]
	return promo, ok
}

// Price derives every total from the snapshot's lines. The returned Items
// are a copy; editing them does not touch the store.
func (p Pricing) Price(s Snapshot) Cart {
	c := Cart{
		ID:        s.ID,
		Items:     slices.Clone(s.Items),
		PromoCode: s.PromoCode,
	}
	if c.Items == nil {
		c.Items = []Item{}
	}

	for _, it := range s.Items {
		c.ItemCount += it.Quantity
		c.Subtotal += it.LineTotal()
	}

	if c.ItemCount > 0 && c.Subtotal < p.FreeShippingThreshold {
		c.Shipping = p.ShippingFee
	}
	c.Tax = decimal.NewFromInt(c.Subtotal).Mul(p.TaxRate).Round(0).IntPart()
	c.Discount = p.discount(s.PromoCode, c.Subtotal)
	c.Total = c.Subtotal + c.Shipping + c.Tax - c.Discount
	return c
}

func (p Pricing) discount(code string, subtotal int64) int64 {
	if code == "" || subtotal <= 0 {
		return 0
	}
	promo, ok := p.Promo(code)
	if !ok || subtotal < promo.MinSubtotal {
		return 0
	}

	var d int64
	if promo.PercentOff > 0 {
		d = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(promo.PercentOff)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}
	d += promo.AmountOff
	return min(d, subtotal)
}
