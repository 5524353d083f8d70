package calc

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvoiceTotalDomestic(t *testing.T) {
	items := []LineItem{
		{Quantity: dec("2"), UnitPrice: dec("1500.00")},
		{Quantity: dec("1"), UnitPrice: dec("250.50")},
	}
	totals := InvoiceTotal(items, ModeDomestic, "", decimal.Zero)
	if totals.Currency != LocalCurrency {
		t.Fatalf("expected RSD got %s", totals.Currency)
	}
	if !totals.Primary.Equal(dec("3250.50")) {
		t.Fatalf("expected 3250.50 got %s", totals.Primary)
	}
	if !totals.RateAvailable {
		t.Fatalf("domestic totals never lack a rate")
	}
}

func TestInvoiceTotalForeignWithRate(t *testing.T) {
	// Two foreign line items [2 x 50.00, 1 x 25.00] in EUR at 117.25.
	items := []LineItem{
		{Quantity: dec("2"), UnitPrice: dec("50.00")},
		{Quantity: dec("1"), UnitPrice: dec("25.00")},
	}
	totals := InvoiceTotal(items, ModeForeign, "EUR", dec("117.25"))
	if totals.Currency != "EUR" {
		t.Fatalf("expected EUR got %s", totals.Currency)
	}
	if !totals.Primary.Equal(dec("125.00")) {
		t.Fatalf("expected 125.00 got %s", totals.Primary)
	}
	if !totals.RateAvailable {
		t.Fatalf("expected available RSD amount")
	}
	if !totals.RSD.Equal(dec("14656.25")) {
		t.Fatalf("expected 14656.25 got %s", totals.RSD)
	}
}

func TestInvoiceTotalForeignWithoutRate(t *testing.T) {
	items := []LineItem{{Quantity: dec("3"), UnitPrice: dec("40.00")}}
	totals := InvoiceTotal(items, ModeForeign, "USD", decimal.Zero)
	if !totals.Primary.Equal(dec("120.00")) {
		t.Fatalf("expected 120.00 got %s", totals.Primary)
	}
	if totals.RateAvailable {
		t.Fatalf("RSD amount must be flagged unavailable")
	}
	if !totals.RSD.IsZero() {
		t.Fatalf("no RSD figure may be fabricated, got %s", totals.RSD)
	}
}

func TestInvoiceTotalEmpty(t *testing.T) {
	totals := InvoiceTotal(nil, ModeDomestic, "", decimal.Zero)
	if !totals.Primary.IsZero() {
		t.Fatalf("expected zero total got %s", totals.Primary)
	}
}

// Summing full-precision line totals and rounding once must not drift the
// way per-line rounding does.
func TestInvoiceTotalSumsBeforeRounding(t *testing.T) {
	// 0.333 x 1 three times: per-line rounding gives 0.33*3 = 0.99,
	// full-precision summing gives 0.999 -> 1.00.
	items := []LineItem{
		{Quantity: dec("0.333"), UnitPrice: dec("1")},
		{Quantity: dec("0.333"), UnitPrice: dec("1")},
		{Quantity: dec("0.333"), UnitPrice: dec("1")},
	}
	totals := InvoiceTotal(items, ModeDomestic, "", decimal.Zero)
	if !totals.Primary.Equal(dec("1.00")) {
		t.Fatalf("expected 1.00 got %s", totals.Primary)
	}
}
