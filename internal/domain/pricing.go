package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// EffectivePrice applies the best applicable discount to basePrice. User discounts are
// scanned first and, when any applies with a non-zero percentage, global discounts are
// ignored entirely. Within a tier the largest percentage wins; percentages never stack.
func EffectivePrice(basePrice decimal.Decimal, userDiscounts, globalDiscounts []Discount) decimal.Decimal {
	pct := bestPercentage(basePrice, userDiscounts)
	if pct.IsZero() {
		pct = bestPercentage(basePrice, globalDiscounts)
	}
	if pct.IsZero() {
		return basePrice
	}
	factor := hundred.Sub(pct).Div(hundred)
	return basePrice.Mul(factor).Round(2)
}

func bestPercentage(price decimal.Decimal, discounts []Discount) decimal.Decimal {
	best := decimal.Zero
	for _, d := range discounts {
		if d.Applies(price) && d.Percentage.GreaterThan(best) {
			best = d.Percentage
		}
	}
	return best
}
