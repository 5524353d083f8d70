// Package fx provides NBS exchange rates: a Redis-backed daily rate store
// with manual-override precedence, an NBS kursna lista client, and a service
// that resolves rates with fetch deduplication and stale-result discard.
package fx

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Currencies the NBS integration supports.
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
	CurrencyCHF = "CHF"
)

// SupportedCurrencies lists the foreign currencies invoices may use.
var SupportedCurrencies = []string{CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF}

// IsSupported reports whether code is a known foreign currency.
func IsSupported(code string) bool {
	switch code {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF:
		return true
	}
	return false
}

// Source tells where an exchange rate came from.
type Source string

const (
	SourceFetched     Source = "FETCHED"
	SourceManual      Source = "MANUAL"
	SourceUnavailable Source = "UNAVAILABLE"
)

// Rate is a middle exchange rate for one currency on one calendar day.
type Rate struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Value    decimal.Decimal `json:"value"`
	Manual   bool            `json:"manual"`
	CachedAt time.Time       `json:"cached_at"`
}

// Source reports the rate's provenance.
func (r Rate) Source() Source {
	if r.Manual {
		return SourceManual
	}
	return SourceFetched
}

var (
	// ErrRateUnavailable indicates no rate could be resolved for the
	// requested currency and date. Callers must degrade to foreign-only
	// display, never substitute a placeholder rate.
	ErrRateUnavailable = errors.New("fx: rate unavailable")
	// ErrUnsupportedCurrency indicates a currency outside the NBS set.
	ErrUnsupportedCurrency = errors.New("fx: unsupported currency")
	// ErrStaleResult indicates a rate resolved against inputs the caller
	// has since changed; the lookup must be re-issued with current inputs.
	ErrStaleResult = errors.New("fx: stale result, inputs changed")
)

// RoundRate rounds an exchange rate to its display precision (4 decimals).
func RoundRate(v decimal.Decimal) decimal.Decimal {
	return v.Round(4)
}

// DateKey normalises a timestamp to the calendar day rates are keyed by.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
