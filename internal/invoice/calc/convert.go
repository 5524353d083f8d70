package calc

import "github.com/shopspring/decimal"

// Direction of a currency-mode switch.
type Direction string

const (
	// LocalToForeign divides RSD unit prices by the rate.
	LocalToForeign Direction = "LOCAL_TO_FOREIGN"
	// ForeignToLocal multiplies foreign unit prices by the rate.
	ForeignToLocal Direction = "FOREIGN_TO_LOCAL"
)

// Local prices are entered and stored at 2 decimals. Converted foreign
// prices keep 4 decimals (the exchange-rate precision) so a round trip back
// to RSD stays within one rounding unit.
const (
	localPriceScale   = 2
	foreignPriceScale = 4
)

// ConvertLineItems rewrites every unit price for a currency-mode switch and
// returns the converted copy. Without a known positive rate the switch is a
// no-op (applied=false) and prices stay exactly as entered.
//
// The conversion is lossy: a LocalToForeign/ForeignToLocal round trip with
// the same rate may move a price by up to one rounding unit (0.01). That is
// inherent to re-quoting prices at 2 decimals, not a defect to compensate.
func ConvertLineItems(items []LineItem, direction Direction, rate decimal.Decimal) ([]LineItem, bool) {
	if !rate.IsPositive() {
		return items, false
	}

	converted := make([]LineItem, len(items))
	for i, item := range items {
		switch direction {
		case LocalToForeign:
			item.UnitPrice = item.UnitPrice.DivRound(rate, foreignPriceScale)
		case ForeignToLocal:
			item.UnitPrice = item.UnitPrice.Mul(rate).Round(localPriceScale)
		default:
			return items, false
		}
		converted[i] = item
	}
	return converted, true
}
