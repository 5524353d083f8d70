package calc

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertLineItemsLocalToForeign(t *testing.T) {
	items := []LineItem{{Description: "Usluga", Quantity: dec("1"), UnitPrice: dec("11725.00")}}
	converted, applied := ConvertLineItems(items, LocalToForeign, dec("117.25"))
	if !applied {
		t.Fatalf("expected conversion to apply")
	}
	if !converted[0].UnitPrice.Equal(dec("100.0000")) {
		t.Fatalf("expected 100.0000 got %s", converted[0].UnitPrice)
	}
	// Input slice stays untouched.
	if !items[0].UnitPrice.Equal(dec("11725.00")) {
		t.Fatalf("input mutated to %s", items[0].UnitPrice)
	}
}

func TestConvertLineItemsForeignToLocal(t *testing.T) {
	items := []LineItem{{Quantity: dec("2"), UnitPrice: dec("50.00")}}
	converted, applied := ConvertLineItems(items, ForeignToLocal, dec("117.25"))
	if !applied {
		t.Fatalf("expected conversion to apply")
	}
	if !converted[0].UnitPrice.Equal(dec("5862.50")) {
		t.Fatalf("expected 5862.50 got %s", converted[0].UnitPrice)
	}
}

func TestConvertLineItemsNoRateIsNoOp(t *testing.T) {
	items := []LineItem{{UnitPrice: dec("500.00"), Quantity: dec("1")}}
	for _, rate := range []decimal.Decimal{decimal.Zero, dec("-117.25")} {
		converted, applied := ConvertLineItems(items, LocalToForeign, rate)
		if applied {
			t.Fatalf("conversion must be a no-op without a positive rate")
		}
		if !converted[0].UnitPrice.Equal(dec("500.00")) {
			t.Fatalf("prices must stay as entered, got %s", converted[0].UnitPrice)
		}
	}
}

func TestConvertLineItemsRoundTripWithinOneCent(t *testing.T) {
	rates := []decimal.Decimal{dec("117.25"), dec("105.2341"), dec("137.9912"), dec("122.11")}
	prices := []string{"50.00", "100.00", "2500.00", "0.99", "14656.25", "333.33"}

	for _, rate := range rates {
		for _, p := range prices {
			items := []LineItem{{Quantity: dec("1"), UnitPrice: dec(p)}}
			foreign, applied := ConvertLineItems(items, LocalToForeign, rate)
			if !applied {
				t.Fatalf("conversion did not apply for rate %s", rate)
			}
			back, applied := ConvertLineItems(foreign, ForeignToLocal, rate)
			if !applied {
				t.Fatalf("reverse conversion did not apply for rate %s", rate)
			}
			drift := back[0].UnitPrice.Sub(dec(p)).Abs()
			if drift.GreaterThan(dec("0.01")) {
				t.Fatalf("price %s rate %s drifted by %s", p, rate, drift)
			}
		}
	}
}
