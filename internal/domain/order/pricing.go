package order

import "github.com/shopspring/decimal"

// Pricing constants, amounts in rupees. Tax is a flat 18% GST approximation
// rounded to whole rupees; there are no per-category rates.
var (
	freeShippingThreshold = decimal.NewFromInt(999)
	shippingFee           = decimal.NewFromInt(49)
	codSurcharge          = decimal.NewFromInt(25)
	taxRate               = decimal.NewFromFloat(0.18)
)

// Totals holds the server-side derived order amounts. Total is always
// Subtotal + Shipping + Tax + CODFee; client-supplied totals are never
// trusted.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	CODFee   decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals derives shipping, tax, and total from the subtotal.
// Shipping is waived at or above the free-shipping threshold. COD orders
// carry a flat surcharge.
func ComputeTotals(subtotal decimal.Decimal, provider Provider) Totals {
	shipping := decimal.Zero
	if subtotal.LessThan(freeShippingThreshold) {
		shipping = shippingFee
	}

	tax := subtotal.Mul(taxRate).Round(0)

	codFee := decimal.Zero
	if provider == ProviderCOD {
		codFee = codSurcharge
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		CODFee:   codFee,
		Total:    subtotal.Add(shipping).Add(tax).Add(codFee),
	}
}
