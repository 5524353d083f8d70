package limit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MonthTotal is aggregated revenue for one calendar month.
type MonthTotal struct {
	Year    int
	Month   time.Month
	Revenue decimal.Decimal
}

// Repository supplies finalized invoice totals. Cancelled invoices are
// excluded everywhere: a storno removes the revenue from the trackers.
type Repository interface {
	// SumIssuedTotals returns the RSD revenue of finalized invoices whose
	// issue date falls in [from, to] inclusive. Empty windows yield zero.
	SumIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) (decimal.Decimal, error)
	// ListIssuedTotals returns per-invoice RSD totals in the window.
	ListIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) ([]InvoiceTotal, error)
	// CountIssued returns the number of finalized invoices in the window.
	CountIssued(ctx context.Context, firmID int64, from, to time.Time) (int, error)
	// MonthlyTotals returns month-by-month revenue in the window.
	MonthlyTotals(ctx context.Context, firmID int64, from, to time.Time) ([]MonthTotal, error)
}
