// Package pricing computes monetary totals for checkout. All
// arithmetic runs on fixed-point decimals rounded half-up to two
// places; floats never enter the money path.
package pricing

import "github.com/shopspring/decimal"

// DefaultTaxRate is applied when the caller has no rate of its own.
var DefaultTaxRate = decimal.NewFromFloat(0.08)

var shippingCosts = map[string]decimal.Decimal{
	"standard":  decimal.RequireFromString("15.99"),
	"express":   decimal.RequireFromString("29.99"),
	"overnight": decimal.RequireFromString("49.99"),
}

// Quote is the result of a pricing computation.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ShippingCost looks up the flat rate for a shipping method. An
// unrecognized method falls back to standard.
func ShippingCost(method string) decimal.Decimal {
	if cost, ok := shippingCosts[method]; ok {
		return cost
	}
	return shippingCosts["standard"]
}

// Compute derives tax, shipping and the final total from a subtotal.
// total = subtotal + tax + shipping - discount, floored at zero.
func Compute(subtotal, taxRate decimal.Decimal, shippingMethod string, discount decimal.Decimal) Quote {
	subtotal = round(subtotal)
	tax := round(subtotal.Mul(taxRate))
	shipping := ShippingCost(shippingMethod)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	discount = round(discount)

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    round(total),
	}
}

// round applies half-up rounding to two decimal places. Money in this
// system is non-negative, so Round's half-away-from-zero behavior is
// half-up here.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
