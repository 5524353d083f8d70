package calc

import "github.com/shopspring/decimal"

// Totals is the aggregate of all line items on an invoice.
//
// Primary is the amount in the invoice's active currency. RSD carries the
// converted aggregate and is only meaningful when RateAvailable is true; a
// foreign invoice without a rate still reports its primary amount but the
// UI must not display a fabricated RSD figure.
type Totals struct {
	Primary       decimal.Decimal
	Currency      string
	RSD           decimal.Decimal
	RateAvailable bool
}

// InvoiceTotal sums line items into invoice totals.
//
// Line totals are summed at full precision and rounded once per aggregate.
// The legacy implementation rounded each line and re-summed the rounded
// values, which drifts by cents as line counts grow; this is a deliberate
// behavioural correction.
func InvoiceTotal(items []LineItem, mode CurrencyMode, currency string, rate decimal.Decimal) Totals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(ComputeLineTotal(item, mode, rate).Native)
	}

	if mode != ModeForeign {
		primary := RoundAmount(sum)
		return Totals{
			Primary:       primary,
			Currency:      LocalCurrency,
			RSD:           primary,
			RateAvailable: true,
		}
	}

	totals := Totals{
		Primary:  RoundAmount(sum),
		Currency: currency,
	}
	if rate.IsPositive() {
		totals.RSD = RoundAmount(sum.Mul(rate))
		totals.RateAvailable = true
	}
	return totals
}
