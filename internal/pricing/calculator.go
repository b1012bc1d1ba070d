// Package pricing derives order totals from cart lines.
//
// All arithmetic is done in decimal so that sums do not depend on line order
// and rounding is half-up at the cent, matching what shoppers see on the
// checkout page.
package pricing

import (
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/shopspring/decimal"
)

const centPlaces = 2

type Rules struct {
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
}

func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: 100,
		FlatShippingFee:       10,
		TaxRate:               0.15,
	}
}

type Calculator struct {
	threshold decimal.Decimal
	flatFee   decimal.Decimal
	taxRate   decimal.Decimal
}

func NewCalculator(r Rules) *Calculator {
	return &Calculator{
		threshold: decimal.NewFromFloat(r.FreeShippingThreshold),
		flatFee:   round2(decimal.NewFromFloat(r.FlatShippingFee)),
		taxRate:   decimal.NewFromFloat(r.TaxRate),
	}
}

// Price computes items, shipping, tax and total for the given lines.
// Shipping is free only when the items subtotal is strictly above the
// threshold.
func (c *Calculator) Price(items []domain.CartItem) domain.Prices {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	itemsPrice := round2(sum)

	shipping := c.flatFee
	if itemsPrice.GreaterThan(c.threshold) {
		shipping = decimal.Zero
	}
	tax := round2(itemsPrice.Mul(c.taxRate))
	total := itemsPrice.Add(shipping).Add(tax)

	return domain.Prices{
		ItemsPrice:    itemsPrice.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

// Round2 rounds half-up to cents.
func Round2(v float64) float64 {
	return round2(decimal.NewFromFloat(v)).InexactFloat64()
}

// FormatAmount renders v with exactly two decimals.
func FormatAmount(v float64) string {
	return round2(decimal.NewFromFloat(v)).StringFixed(centPlaces)
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(centPlaces)
}
