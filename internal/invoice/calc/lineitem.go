package calc

import "github.com/shopspring/decimal"

// CurrencyMode tells which currency line-item prices are denominated in.
type CurrencyMode string

const (
	// ModeDomestic prices everything in RSD.
	ModeDomestic CurrencyMode = "DOMESTIC"
	// ModeForeign prices line items in the invoice's foreign currency.
	ModeForeign CurrencyMode = "FOREIGN"
)

// LocalCurrency is the invoice ledger currency.
const LocalCurrency = "RSD"

// LineItem is one invoice line as entered by the user. UnitPrice is
// denominated in the invoice's active currency.
type LineItem struct {
	CatalogID   *int64
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Ordinal     int
}

// LineTotal is the computed total of one line item. RSD carries the
// converted amount only when RSDKnown is true; a missing rate must surface
// as "rate unavailable", never as a zero amount.
type LineTotal struct {
	Native   decimal.Decimal
	RSD      decimal.Decimal
	RSDKnown bool
}

// ComputeLineTotal computes a line's total in its native currency and, in
// foreign mode with a known positive rate, the RSD equivalent. Totals keep
// full precision; round with RoundAmount only at display boundaries.
func ComputeLineTotal(item LineItem, mode CurrencyMode, rate decimal.Decimal) LineTotal {
	native := item.Quantity.Mul(item.UnitPrice)
	if mode != ModeForeign {
		return LineTotal{Native: native, RSD: native, RSDKnown: true}
	}
	if !rate.IsPositive() {
		return LineTotal{Native: native}
	}
	return LineTotal{
		Native:   native,
		RSD:      native.Mul(rate),
		RSDKnown: true,
	}
}

// RoundAmount rounds a monetary amount to its display precision (2 decimals).
func RoundAmount(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
