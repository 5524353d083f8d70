package kpo

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository persists KPO entries. Append assigns the next per-firm,
// per-year ordinal atomically.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ExistsForInvoice(ctx context.Context, firmID, invoiceID int64) (bool, error)
	DeleteForInvoice(ctx context.Context, firmID, invoiceID int64) error
	ListYear(ctx context.Context, firmID int64, year int) ([]Entry, error)
	YearTotal(ctx context.Context, firmID int64, year int) (decimal.Decimal, error)
}
